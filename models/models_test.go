package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credential-ledger/apperrors"
)

const issuerAddr = Address("0x00000000000000000000000000000000000000aa")

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Address
		ok    bool
	}{
		{"lowercase", "0x00000000000000000000000000000000000000aa", issuerAddr, true},
		{"mixed case is normalised", " 0x00000000000000000000000000000000000000AA ", issuerAddr, true},
		{"zero address", "0x0000000000000000000000000000000000000000", "", false},
		{"missing prefix", "00000000000000000000000000000000000000aa00", "", false},
		{"too short", "0xaa", "", false},
		{"not hex", "0x00000000000000000000000000000000000000zz", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAddress(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, issuerAddr.Valid())
	assert.False(t, Address("0x00000000000000000000000000000000000000AA").Valid())
	assert.False(t, Address("").Valid())
}

func TestHash_TextEncoding(t *testing.T) {
	var h Hash
	h[0], h[31] = 0xab, 0x01

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `"0xab00000000000000000000000000000000000000000000000000000000000001"`, string(data))

	parsed, err := ParseHash("ab00000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParseHash("0xabc")
	assert.Error(t, err)
	assert.True(t, Hash{}.IsZero())
}

func TestIssuer_Transitions(t *testing.T) {
	_, err := NewIssuer("", "Uni", "ipfs://u", 1)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidIdentity))
	_, err = NewIssuer(issuerAddr, "", "ipfs://u", 1)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyName))

	iss, err := NewIssuer(issuerAddr, "Uni", "ipfs://u", 10)
	require.NoError(t, err)
	assert.Equal(t, IssuerRegistered, iss.Status)
	assert.False(t, iss.IsAccredited())

	assert.True(t, errors.Is(iss.Suspend("x", 11), apperrors.ErrNotAccredited))
	assert.True(t, errors.Is(iss.Revoke("x", 11), apperrors.ErrNotAccredited))
	assert.True(t, errors.Is(iss.Reactivate(), apperrors.ErrNotSuspended))

	require.NoError(t, iss.Accredit(20))
	assert.True(t, iss.IsAccredited())
	assert.Equal(t, int64(20), iss.AccreditedAt)
	assert.True(t, errors.Is(iss.Accredit(21), apperrors.ErrAlreadyAccredited))

	require.NoError(t, iss.Suspend("audit", 30))
	assert.False(t, iss.IsAccredited())
	assert.Equal(t, "audit", iss.StatusReason)
	assert.True(t, errors.Is(iss.Accredit(31), apperrors.ErrNotRegistered))

	require.NoError(t, iss.Reactivate())
	assert.True(t, iss.IsAccredited())
	assert.Empty(t, iss.StatusReason)

	require.NoError(t, iss.Revoke("fraud", 40))
	assert.Equal(t, IssuerRevoked, iss.Status)
	assert.True(t, errors.Is(iss.Accredit(41), apperrors.ErrNotRegistered))
	assert.True(t, errors.Is(iss.Reactivate(), apperrors.ErrNotSuspended))
}

func TestCredential_Expiry(t *testing.T) {
	never := Credential{ExpiresAt: 0}
	assert.False(t, never.IsExpired(1<<40))
	assert.True(t, never.IsActive(1<<40))

	c := Credential{ExpiresAt: 100}
	assert.False(t, c.IsExpired(100))
	assert.True(t, c.IsExpired(101))
	assert.False(t, c.IsActive(101))

	c.ExpiresAt = 500
	c.IsRevoked = true
	assert.False(t, c.IsExpired(101))
	assert.False(t, c.IsActive(101))
}

func TestCredentialType_Valid(t *testing.T) {
	for _, typ := range []CredentialType{CredentialDegree, CredentialCertificate, CredentialBadge,
		CredentialLicense, CredentialTranscript, CredentialCertification} {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, CredentialType("").Valid())
	assert.False(t, CredentialType("Degree").Valid())
}

func TestAction_Validate(t *testing.T) {
	assert.NoError(t, Action{Kind: ActionRegisterIssuer, Issuer: issuerAddr, Name: "Uni"}.Validate())
	assert.NoError(t, Action{Kind: ActionSuspendIssuer, Issuer: issuerAddr}.Validate())
	assert.True(t, errors.Is(Action{Kind: ActionRegisterIssuer, Issuer: issuerAddr}.Validate(), apperrors.ErrEmptyName))
	assert.True(t, errors.Is(Action{Kind: "mint", Issuer: issuerAddr}.Validate(), apperrors.ErrInvalidAction))
	assert.True(t, errors.Is(Action{Kind: ActionAccreditIssuer}.Validate(), apperrors.ErrInvalidIdentity))

	a := Action{Kind: ActionAccreditIssuer, Issuer: issuerAddr}
	assert.Equal(t, a.Encode(), Action{Kind: ActionAccreditIssuer, Issuer: issuerAddr}.Encode())
	assert.NotEqual(t, a.Encode(), Action{Kind: ActionRevokeIssuer, Issuer: issuerAddr}.Encode())
}

func TestProposal_State(t *testing.T) {
	const grace = 50
	base := Proposal{StartTime: 100, EndTime: 200}

	tests := []struct {
		name   string
		mutate func(p *Proposal)
		now    int64
		want   ProposalState
	}{
		{"before start", nil, 99, ProposalPending},
		{"window opens", nil, 100, ProposalActive},
		{"window end is inclusive", nil, 200, ProposalActive},
		{"after end untallied", nil, 201, ProposalEnded},
		{"defeated", func(p *Proposal) { p.Outcome = ProposalDefeated }, 300, ProposalDefeated},
		{"succeeded", func(p *Proposal) { p.Outcome = ProposalSucceeded }, 300, ProposalSucceeded},
		{"queued within grace", func(p *Proposal) {
			p.Outcome, p.QueuedAt, p.ETA = ProposalSucceeded, 210, 300
		}, 350, ProposalQueued},
		{"queued past grace", func(p *Proposal) {
			p.Outcome, p.QueuedAt, p.ETA = ProposalSucceeded, 210, 300
		}, 351, ProposalExpired},
		{"executed wins over expiry", func(p *Proposal) {
			p.Outcome, p.QueuedAt, p.ETA, p.ExecutedAt = ProposalSucceeded, 210, 300, 320
		}, 10_000, ProposalExecuted},
		{"canceled", func(p *Proposal) { p.CanceledAt = 150 }, 150, ProposalCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			assert.Equal(t, tt.want, p.State(tt.now, grace))
		})
	}
}

func TestTimelockEntry_Pending(t *testing.T) {
	e := TimelockEntry{ETA: 100}
	assert.True(t, e.Pending(150, 50))
	assert.False(t, e.Pending(151, 50))

	e.Done = true
	assert.False(t, e.Pending(120, 50))

	e = TimelockEntry{ETA: 100, Canceled: true}
	assert.False(t, e.Pending(120, 50))
}
