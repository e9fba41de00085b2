// Package governance drives issuer accreditation changes through
// propose -> vote -> tally -> queue -> execute, with a timelock between a
// successful vote and execution.
//
// The DAO holds the registry Authority. Executing a queued proposal applies its
// action to the registry in the same ledger operation that marks the proposal
// executed, so a failing action leaves the proposal queued and retryable until
// its grace period lapses.
package governance

import (
	"strconv"

	"golang.org/x/crypto/sha3"

	"credential-ledger/apperrors"
	"credential-ledger/ledger"
	"credential-ledger/models"
	"credential-ledger/registry"
	"credential-ledger/repository"
)

// Operation names recorded on receipts.
const (
	OpPropose = "governance.propose"
	OpVote    = "governance.vote"
	OpTally   = "governance.tally"
	OpQueue   = "governance.queue"
	OpExecute = "governance.execute"
	OpCancel  = "governance.cancel"
)

const proposalCounter = "proposal"

type DAO struct {
	ledger   *ledger.Ledger
	registry *registry.Registry
	auth     registry.Authority
	params   Params
	guardian models.Address
}

type Option func(*DAO)

// WithGuardian lets guardian cancel any proposal that has not been executed.
func WithGuardian(guardian models.Address) Option {
	return func(d *DAO) {
		d.guardian = guardian
	}
}

// New builds a DAO that acts on reg with auth. The DAO's identity is auth.Holder().
func New(l *ledger.Ledger, reg *registry.Registry, auth registry.Authority, params Params, opts ...Option) *DAO {
	d := &DAO{
		ledger:   l,
		registry: reg,
		auth:     auth,
		params:   params,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Address is the identity the DAO uses as privileged caller.
func (d *DAO) Address() models.Address {
	return d.auth.Holder()
}

func (d *DAO) Params() Params {
	return d.params
}

// OperationID is the timelock key of an action: keccak256 of its canonical encoding.
func OperationID(action models.Action) models.Hash {
	var id models.Hash
	h := sha3.NewLegacyKeccak256()
	h.Write(action.Encode())
	copy(id[:], h.Sum(nil))
	return id
}

// Propose opens a proposal for action. The caller needs at least ProposalThreshold voting power.
func (d *DAO) Propose(caller models.Address, description string, action models.Action) (uint64, *models.Receipt, error) {
	var id uint64
	receipt, err := d.ledger.Submit(caller, OpPropose, func(tx *ledger.Tx) error {
		power, err := powerOf(tx, tx.Caller())
		if err != nil {
			return err
		}
		if power < d.params.ProposalThreshold || power == 0 {
			return apperrors.ErrInsufficientProposerPower
		}
		if err := action.Validate(); err != nil {
			return err
		}
		total, err := totalPower(tx)
		if err != nil {
			return err
		}
		id, err = tx.NextID(proposalCounter)
		if err != nil {
			return err
		}
		start := tx.Now() + seconds(d.params.VotingDelay)
		p := models.Proposal{
			ID:                 id,
			Proposer:           tx.Caller(),
			Description:        description,
			Action:             action,
			CreatedAt:          tx.Now(),
			StartTime:          start,
			EndTime:            start + seconds(d.params.VotingPeriod),
			SnapshotTotalPower: total,
			QuorumVotes:        d.params.Quorum(total),
			OperationID:        OperationID(action),
		}
		if err := tx.Put(repository.ProposalKey(id), p); err != nil {
			return err
		}
		tx.Emit(models.EventProposalCreated,
			"id", strconv.FormatUint(id, 10),
			"proposer", tx.Caller().String(),
			"action", string(action.Kind),
			"issuer", action.Issuer.String())
		return nil
	})
	if err != nil {
		return 0, receipt, err
	}
	return id, receipt, nil
}

// CastVote records the caller's vote weighted by its current voting power.
func (d *DAO) CastVote(caller models.Address, proposalID uint64, support bool) (*models.Receipt, error) {
	return d.ledger.Submit(caller, OpVote, func(tx *ledger.Tx) error {
		p, err := loadProposal(tx, proposalID)
		if err != nil {
			return err
		}
		if p.State(tx.Now(), d.grace()) != models.ProposalActive {
			return apperrors.ErrProposalNotActive
		}
		voteKey := repository.VoteKey(proposalID, tx.Caller())
		var existing models.Vote
		voted, err := tx.Get(voteKey, &existing)
		if err != nil {
			return err
		}
		if voted {
			return apperrors.ErrAlreadyVoted
		}
		weight, err := powerOf(tx, tx.Caller())
		if err != nil {
			return err
		}
		if weight == 0 {
			return apperrors.ErrNoVotingPower
		}

		if support {
			p.ForVotes += weight
		} else {
			p.AgainstVotes += weight
		}
		p.Voters++
		vote := models.Vote{ProposalID: proposalID, Voter: tx.Caller(), Support: support, Weight: weight, CastAt: tx.Now()}
		if err := tx.Put(voteKey, vote); err != nil {
			return err
		}
		if err := tx.Put(repository.ProposalKey(proposalID), p); err != nil {
			return err
		}
		tx.Emit(models.EventVoteCast,
			"id", strconv.FormatUint(proposalID, 10),
			"voter", tx.Caller().String(),
			"support", strconv.FormatBool(support),
			"weight", strconv.FormatUint(weight, 10))
		return nil
	})
}

// Succeeded is the tally rule: strictly more for than against, and participation at or above quorum.
func Succeeded(p *models.Proposal) bool {
	return p.ForVotes > p.AgainstVotes && p.ForVotes+p.AgainstVotes >= p.QuorumVotes
}

// Tally settles a proposal whose voting window has closed. Anyone may call it.
func (d *DAO) Tally(caller models.Address, proposalID uint64) (models.ProposalState, *models.Receipt, error) {
	var outcome models.ProposalState
	receipt, err := d.ledger.Submit(caller, OpTally, func(tx *ledger.Tx) error {
		p, err := loadProposal(tx, proposalID)
		if err != nil {
			return err
		}
		switch p.State(tx.Now(), d.grace()) {
		case models.ProposalPending, models.ProposalActive:
			return apperrors.ErrVotingNotEnded
		case models.ProposalCanceled:
			return apperrors.ErrProposalFinalized
		case models.ProposalEnded:
		default:
			return apperrors.ErrAlreadyTallied
		}
		outcome = models.ProposalDefeated
		if Succeeded(p) {
			outcome = models.ProposalSucceeded
		}
		p.Outcome = outcome
		p.TalliedAt = tx.Now()
		if err := tx.Put(repository.ProposalKey(proposalID), p); err != nil {
			return err
		}
		tx.Emit(models.EventProposalTallied,
			"id", strconv.FormatUint(proposalID, 10),
			"outcome", string(outcome),
			"for", strconv.FormatUint(p.ForVotes, 10),
			"against", strconv.FormatUint(p.AgainstVotes, 10))
		return nil
	})
	return outcome, receipt, err
}

// Queue schedules a succeeded proposal's action in the timelock at now + MinDelay.
func (d *DAO) Queue(caller models.Address, proposalID uint64) (int64, *models.Receipt, error) {
	var eta int64
	receipt, err := d.ledger.Submit(caller, OpQueue, func(tx *ledger.Tx) error {
		p, err := loadProposal(tx, proposalID)
		if err != nil {
			return err
		}
		switch p.State(tx.Now(), d.grace()) {
		case models.ProposalSucceeded:
		case models.ProposalQueued:
			return apperrors.ErrAlreadyQueued
		case models.ProposalExecuted, models.ProposalCanceled:
			return apperrors.ErrProposalFinalized
		case models.ProposalExpired:
			return apperrors.ErrProposalExpired
		default:
			return apperrors.ErrProposalNotSucceeded
		}

		entry, err := loadTimelock(tx, p.OperationID)
		if err != nil {
			return err
		}
		if entry != nil && entry.Pending(tx.Now(), d.grace()) {
			return apperrors.ErrAlreadyQueued
		}

		eta = tx.Now() + seconds(d.params.MinDelay)
		p.ETA = eta
		p.QueuedAt = tx.Now()
		next := models.TimelockEntry{OperationID: p.OperationID, ProposalID: p.ID, Action: p.Action, ETA: eta}
		if err := tx.Put(repository.TimelockKey(p.OperationID), next); err != nil {
			return err
		}
		if err := tx.Put(repository.ProposalKey(proposalID), p); err != nil {
			return err
		}
		tx.Emit(models.EventProposalQueued,
			"id", strconv.FormatUint(proposalID, 10),
			"operation", p.OperationID.String(),
			"eta", strconv.FormatInt(eta, 10))
		return nil
	})
	return eta, receipt, err
}

// Execute applies a queued proposal's action to the registry once its eta has passed.
// Anyone may trigger it; the registry mutation runs with the DAO's authority.
func (d *DAO) Execute(caller models.Address, proposalID uint64) (*models.Receipt, error) {
	return d.ledger.Submit(caller, OpExecute, func(tx *ledger.Tx) error {
		p, err := loadProposal(tx, proposalID)
		if err != nil {
			return err
		}
		switch p.State(tx.Now(), d.grace()) {
		case models.ProposalQueued:
		case models.ProposalExecuted, models.ProposalCanceled:
			return apperrors.ErrProposalFinalized
		case models.ProposalExpired:
			return apperrors.ErrProposalExpired
		default:
			return apperrors.ErrProposalNotQueued
		}
		if tx.Now() < p.ETA {
			return apperrors.ErrTimelockNotDue
		}

		if err := d.registry.Apply(tx, d.auth, p.Action); err != nil {
			return err
		}

		entry, err := loadTimelock(tx, p.OperationID)
		if err != nil {
			return err
		}
		if entry != nil && entry.ProposalID == p.ID {
			entry.Done = true
			if err := tx.Put(repository.TimelockKey(p.OperationID), entry); err != nil {
				return err
			}
		}
		p.ExecutedAt = tx.Now()
		if err := tx.Put(repository.ProposalKey(proposalID), p); err != nil {
			return err
		}
		tx.Emit(models.EventProposalExecuted,
			"id", strconv.FormatUint(proposalID, 10),
			"operation", p.OperationID.String())
		return nil
	})
}

// Cancel withdraws a proposal that has not been executed. Only the proposer or the guardian may cancel.
// A queued proposal's timelock entry is canceled with it.
func (d *DAO) Cancel(caller models.Address, proposalID uint64) (*models.Receipt, error) {
	return d.ledger.Submit(caller, OpCancel, func(tx *ledger.Tx) error {
		p, err := loadProposal(tx, proposalID)
		if err != nil {
			return err
		}
		if tx.Caller() != p.Proposer && (d.guardian == "" || tx.Caller() != d.guardian) {
			return apperrors.ErrUnauthorized
		}
		switch p.State(tx.Now(), d.grace()) {
		case models.ProposalExecuted, models.ProposalCanceled:
			return apperrors.ErrProposalFinalized
		}

		if p.QueuedAt != 0 {
			entry, err := loadTimelock(tx, p.OperationID)
			if err != nil {
				return err
			}
			if entry != nil && entry.ProposalID == p.ID && !entry.Done {
				entry.Canceled = true
				if err := tx.Put(repository.TimelockKey(p.OperationID), entry); err != nil {
					return err
				}
			}
		}
		p.CanceledAt = tx.Now()
		if err := tx.Put(repository.ProposalKey(proposalID), p); err != nil {
			return err
		}
		tx.Emit(models.EventProposalCanceled,
			"id", strconv.FormatUint(proposalID, 10),
			"by", tx.Caller().String())
		return nil
	})
}

func (d *DAO) grace() int64 {
	return seconds(d.params.GracePeriod)
}
