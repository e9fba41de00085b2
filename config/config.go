package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"credential-ledger/governance"
	"credential-ledger/models"
	"credential-ledger/verifier"
)

// EnvPrefix scopes environment overrides, e.g. CREDLEDGER_SERVER_PORT.
const EnvPrefix = "CREDLEDGER"

// GovernanceMode selects who holds the registry authority.
type GovernanceMode string

const (
	ModeDAO   GovernanceMode = "dao"   // accreditation changes go through proposals and the timelock
	ModeAdmin GovernanceMode = "admin" // a single operator identity mutates the registry directly
)

func (m GovernanceMode) Valid() bool {
	return m == ModeDAO || m == ModeAdmin
}

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	LevelDB    LevelDBConfig
	Registry   RegistryConfig
	Governance GovernanceConfig
	Verifier   VerifierConfig
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	AppLogFile string
	Level      string
}

type LevelDBConfig struct {
	Path string
}

type RegistryConfig struct {
	Admin models.Address
}

type GovernanceConfig struct {
	Mode     GovernanceMode
	Address  models.Address
	Guardian models.Address
	Params   governance.Params
	Voters   map[models.Address]uint64
}

type VerifierConfig struct {
	BatchConcurrency int
	MaxBatchSize     int
}

func setDefaults(v *viper.Viper) {
	defaults := governance.DefaultParams()
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("leveldb.path", "data/leveldb")
	v.SetDefault("governance.mode", string(ModeDAO))
	v.SetDefault("governance.voting_delay", defaults.VotingDelay)
	v.SetDefault("governance.voting_period", defaults.VotingPeriod)
	v.SetDefault("governance.min_delay", defaults.MinDelay)
	v.SetDefault("governance.grace_period", defaults.GracePeriod)
	v.SetDefault("governance.proposal_threshold", defaults.ProposalThreshold)
	v.SetDefault("governance.quorum_percent", defaults.QuorumPercent)
	v.SetDefault("verifier.batch_concurrency", verifier.DefaultBatchConcurrency)
	v.SetDefault("verifier.max_batch_size", verifier.DefaultMaxBatchSize)
}

// Load reads the YAML file at path, applies CREDLEDGER_* environment overrides
// and validates the result. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			AppLogFile: v.GetString("log.app_log_file"),
			Level:      v.GetString("log.level"),
		},
		LevelDB: LevelDBConfig{Path: v.GetString("leveldb.path")},
		Governance: GovernanceConfig{
			Mode: GovernanceMode(strings.ToLower(v.GetString("governance.mode"))),
			Params: governance.Params{
				VotingDelay:       v.GetDuration("governance.voting_delay"),
				VotingPeriod:      v.GetDuration("governance.voting_period"),
				MinDelay:          v.GetDuration("governance.min_delay"),
				GracePeriod:       v.GetDuration("governance.grace_period"),
				ProposalThreshold: v.GetUint64("governance.proposal_threshold"),
				QuorumPercent:     v.GetUint64("governance.quorum_percent"),
			},
			Voters: make(map[models.Address]uint64),
		},
		Verifier: VerifierConfig{
			BatchConcurrency: v.GetInt("verifier.batch_concurrency"),
			MaxBatchSize:     v.GetInt("verifier.max_batch_size"),
		},
	}

	var err error
	if cfg.Registry.Admin, err = optionalAddress(v, "registry.admin"); err != nil {
		return nil, err
	}
	if cfg.Governance.Address, err = optionalAddress(v, "governance.address"); err != nil {
		return nil, err
	}
	if cfg.Governance.Guardian, err = optionalAddress(v, "governance.guardian"); err != nil {
		return nil, err
	}
	for raw, weight := range v.GetStringMap("governance.voters") {
		addr, ok := models.ParseAddress(raw)
		if !ok {
			return nil, fmt.Errorf("governance.voters: invalid address %q", raw)
		}
		w, err := toWeight(weight)
		if err != nil {
			return nil, fmt.Errorf("governance.voters[%s]: %w", raw, err)
		}
		cfg.Governance.Voters[addr] = w
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.LevelDB.Path == "" {
		return fmt.Errorf("leveldb.path is required")
	}
	if c.Verifier.BatchConcurrency <= 0 || c.Verifier.MaxBatchSize <= 0 {
		return fmt.Errorf("verifier limits must be positive")
	}
	switch c.Governance.Mode {
	case ModeDAO:
		if c.Governance.Address == "" {
			return fmt.Errorf("governance.address is required in dao mode")
		}
		if len(c.Governance.Voters) == 0 {
			return fmt.Errorf("governance.voters is required in dao mode")
		}
		if err := c.Governance.Params.Validate(); err != nil {
			return fmt.Errorf("governance: %w", err)
		}
	case ModeAdmin:
		if c.Registry.Admin == "" {
			return fmt.Errorf("registry.admin is required in admin mode")
		}
	default:
		return fmt.Errorf("governance.mode must be %q or %q, got %q", ModeDAO, ModeAdmin, c.Governance.Mode)
	}
	return nil
}

// AuthorityHolder is the identity bound to the registry authority in the configured mode.
func (c *Config) AuthorityHolder() models.Address {
	if c.Governance.Mode == ModeAdmin {
		return c.Registry.Admin
	}
	return c.Governance.Address
}

func optionalAddress(v *viper.Viper, key string) (models.Address, error) {
	raw := v.GetString(key)
	if raw == "" {
		return "", nil
	}
	addr, ok := models.ParseAddress(raw)
	if !ok {
		return "", fmt.Errorf("%s: invalid address %q", key, raw)
	}
	return addr, nil
}

func toWeight(raw any) (uint64, error) {
	switch w := raw.(type) {
	case int:
		if w < 0 {
			return 0, fmt.Errorf("negative weight %d", w)
		}
		return uint64(w), nil
	case int64:
		if w < 0 {
			return 0, fmt.Errorf("negative weight %d", w)
		}
		return uint64(w), nil
	case uint64:
		return w, nil
	case float64:
		if w < 0 || w != float64(uint64(w)) {
			return 0, fmt.Errorf("weight must be a whole number, got %v", w)
		}
		return uint64(w), nil
	}
	return 0, fmt.Errorf("unsupported weight %v", raw)
}
