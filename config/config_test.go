package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credential-ledger/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ModeDAO, cfg.Governance.Mode)
	assert.Equal(t, 7*24*time.Hour, cfg.Governance.Params.VotingPeriod)
	assert.Equal(t, uint64(4), cfg.Governance.Params.QuorumPercent)
	assert.Len(t, cfg.Governance.Voters, 3)
	assert.Equal(t, cfg.Governance.Address, cfg.AuthorityHolder())
}

func TestLoad_DefaultsAndAdminMode(t *testing.T) {
	path := writeConfig(t, `
governance:
  mode: admin
registry:
  admin: "0x00000000000000000000000000000000000000AD"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeAdmin, cfg.Governance.Mode)
	assert.Equal(t, models.Address("0x00000000000000000000000000000000000000ad"), cfg.AuthorityHolder())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Governance.Params.VotingDelay)
	assert.Equal(t, 500, cfg.Verifier.MaxBatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
governance:
  mode: admin
registry:
  admin: "0x00000000000000000000000000000000000000ad"
`)
	t.Setenv("CREDLEDGER_SERVER_PORT", "9191")
	t.Setenv("CREDLEDGER_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown mode", "governance:\n  mode: anarchy\n"},
		{"dao without address", "governance:\n  mode: dao\n  voters:\n    \"0x00000000000000000000000000000000000000a1\": 1\n"},
		{"dao without voters", "governance:\n  mode: dao\n  address: \"0x00000000000000000000000000000000000000d0\"\n"},
		{"admin without admin", "governance:\n  mode: admin\n"},
		{"bad admin address", "governance:\n  mode: admin\nregistry:\n  admin: nobody\n"},
		{"bad voter address", "governance:\n  mode: dao\n  address: \"0x00000000000000000000000000000000000000d0\"\n  voters:\n    alice: 1\n"},
		{"quorum over 100", "governance:\n  mode: dao\n  address: \"0x00000000000000000000000000000000000000d0\"\n  quorum_percent: 101\n  voters:\n    \"0x00000000000000000000000000000000000000a1\": 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
