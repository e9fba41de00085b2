package models

import (
	"encoding/json"

	"credential-ledger/apperrors"
)

// ActionKind names a registry mutation a proposal can carry.
type ActionKind string

const (
	ActionRegisterIssuer   ActionKind = "register_issuer"
	ActionAccreditIssuer   ActionKind = "accredit_issuer"
	ActionSuspendIssuer    ActionKind = "suspend_issuer"
	ActionReactivateIssuer ActionKind = "reactivate_issuer"
	ActionRevokeIssuer     ActionKind = "revoke_issuer"
)

// Action is a pre-encoded registry mutation executed by governance.
type Action struct {
	Kind        ActionKind `json:"kind"`
	Issuer      Address    `json:"issuer"`
	Name        string     `json:"name,omitempty"`
	MetadataRef string     `json:"metadata_ref,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// Validate checks the action is well-formed. It does not check registry state.
func (a Action) Validate() error {
	if !a.Issuer.Valid() {
		return apperrors.ErrInvalidIdentity
	}
	switch a.Kind {
	case ActionRegisterIssuer:
		if a.Name == "" {
			return apperrors.ErrEmptyName
		}
	case ActionAccreditIssuer, ActionSuspendIssuer, ActionReactivateIssuer, ActionRevokeIssuer:
	default:
		return apperrors.ErrInvalidAction
	}
	return nil
}

// Encode returns the canonical byte encoding used to derive timelock operation ids.
func (a Action) Encode() []byte {
	// struct field order is fixed, so the encoding is deterministic
	data, _ := json.Marshal(a)
	return data
}

// ProposalState is the lifecycle state of a proposal.
type ProposalState string

const (
	ProposalPending   ProposalState = "pending"
	ProposalActive    ProposalState = "active"
	ProposalEnded     ProposalState = "ended" // voting closed, not yet tallied
	ProposalSucceeded ProposalState = "succeeded"
	ProposalDefeated  ProposalState = "defeated"
	ProposalQueued    ProposalState = "queued"
	ProposalExpired   ProposalState = "expired"
	ProposalExecuted  ProposalState = "executed"
	ProposalCanceled  ProposalState = "canceled"
)

type Proposal struct {
	ID                 uint64        `json:"id"`
	Proposer           Address       `json:"proposer"`
	Description        string        `json:"description"`
	Action             Action        `json:"action"`
	CreatedAt          int64         `json:"created_at"`
	StartTime          int64         `json:"start_time"`
	EndTime            int64         `json:"end_time"`
	SnapshotTotalPower uint64        `json:"snapshot_total_power"`
	QuorumVotes        uint64        `json:"quorum_votes"`
	ForVotes           uint64        `json:"for_votes"`
	AgainstVotes       uint64        `json:"against_votes"`
	Voters             uint64        `json:"voters"`
	Outcome            ProposalState `json:"outcome,omitempty"` // succeeded or defeated once tallied
	TalliedAt          int64         `json:"tallied_at,omitempty"`
	OperationID        Hash          `json:"operation_id"`
	ETA                int64         `json:"eta,omitempty"`
	QueuedAt           int64         `json:"queued_at,omitempty"`
	ExecutedAt         int64         `json:"executed_at,omitempty"`
	CanceledAt         int64         `json:"canceled_at,omitempty"`
}

// State derives the effective lifecycle state from stored milestones and now.
// Pending, Active, Ended and Expired are never stored.
func (p *Proposal) State(now, gracePeriod int64) ProposalState {
	switch {
	case p.ExecutedAt != 0:
		return ProposalExecuted
	case p.CanceledAt != 0:
		return ProposalCanceled
	case p.QueuedAt != 0:
		if now > p.ETA+gracePeriod {
			return ProposalExpired
		}
		return ProposalQueued
	case p.Outcome != "":
		return p.Outcome
	case now < p.StartTime:
		return ProposalPending
	case now <= p.EndTime:
		return ProposalActive
	default:
		return ProposalEnded
	}
}

// ProposalView pairs a proposal with its state at read time.
type ProposalView struct {
	Proposal
	State ProposalState `json:"state"`
}

type Vote struct {
	ProposalID uint64  `json:"proposal_id"`
	Voter      Address `json:"voter"`
	Support    bool    `json:"support"`
	Weight     uint64  `json:"weight"`
	CastAt     int64   `json:"cast_at"`
}

// TimelockEntry is an action scheduled for execution no earlier than ETA.
type TimelockEntry struct {
	OperationID Hash   `json:"operation_id"`
	ProposalID  uint64 `json:"proposal_id"`
	Action      Action `json:"action"`
	ETA         int64  `json:"eta"`
	Done        bool   `json:"done"`
	Canceled    bool   `json:"canceled"`
}

// Pending reports whether the entry still blocks re-queuing of the same action.
func (e *TimelockEntry) Pending(now, gracePeriod int64) bool {
	return !e.Done && !e.Canceled && now <= e.ETA+gracePeriod
}
