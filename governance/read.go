package governance

import (
	"encoding/json"

	"credential-ledger/apperrors"
	"credential-ledger/ledger"
	"credential-ledger/models"
	"credential-ledger/repository"
)

func loadProposal(r ledger.Reader, id uint64) (*models.Proposal, error) {
	var p models.Proposal
	ok, err := r.Get(repository.ProposalKey(id), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrProposalNotFound
	}
	return &p, nil
}

func loadTimelock(r ledger.Reader, operationID models.Hash) (*models.TimelockEntry, error) {
	var entry models.TimelockEntry
	ok, err := r.Get(repository.TimelockKey(operationID), &entry)
	if err != nil || !ok {
		return nil, err
	}
	return &entry, nil
}

func (d *DAO) view(r ledger.Reader, p *models.Proposal) models.ProposalView {
	return models.ProposalView{Proposal: *p, State: p.State(r.Now(), d.grace())}
}

// Proposal returns the proposal with its state as of now.
func (d *DAO) Proposal(id uint64) (*models.ProposalView, error) {
	var out models.ProposalView
	err := d.ledger.View(func(r ledger.Reader) error {
		p, err := loadProposal(r, id)
		if err != nil {
			return err
		}
		out = d.view(r, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// State returns only the proposal's current state.
func (d *DAO) State(id uint64) (models.ProposalState, error) {
	p, err := d.Proposal(id)
	if err != nil {
		return "", err
	}
	return p.State, nil
}

// Proposals lists every proposal in id order.
func (d *DAO) Proposals() ([]models.ProposalView, error) {
	var out []models.ProposalView
	err := d.ledger.View(func(r ledger.Reader) error {
		return r.Scan(repository.ProposalPrefix, func(key string, data []byte) error {
			var p models.Proposal
			if err := json.Unmarshal(data, &p); err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "decode "+key)
			}
			out = append(out, d.view(r, &p))
			return nil
		})
	})
	return out, err
}

// Vote returns voter's ballot on a proposal, or nil if it has not voted.
func (d *DAO) Vote(proposalID uint64, voter models.Address) (*models.Vote, error) {
	var vote *models.Vote
	err := d.ledger.View(func(r ledger.Reader) error {
		if _, err := loadProposal(r, proposalID); err != nil {
			return err
		}
		var v models.Vote
		ok, err := r.Get(repository.VoteKey(proposalID, voter), &v)
		if ok {
			vote = &v
		}
		return err
	})
	return vote, err
}

// HasVoted reports whether voter has cast a ballot on the proposal.
func (d *DAO) HasVoted(proposalID uint64, voter models.Address) (bool, error) {
	vote, err := d.Vote(proposalID, voter)
	return vote != nil, err
}

// Votes lists every ballot cast on a proposal, ordered by voter address.
func (d *DAO) Votes(proposalID uint64) ([]models.Vote, error) {
	var out []models.Vote
	err := d.ledger.View(func(r ledger.Reader) error {
		if _, err := loadProposal(r, proposalID); err != nil {
			return err
		}
		return r.Scan(repository.VotePrefixFor(proposalID), func(key string, data []byte) error {
			var v models.Vote
			if err := json.Unmarshal(data, &v); err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "decode "+key)
			}
			out = append(out, v)
			return nil
		})
	})
	return out, err
}

// TimelockEntry returns the scheduled entry for an operation id, or nil.
func (d *DAO) TimelockEntry(operationID models.Hash) (*models.TimelockEntry, error) {
	var entry *models.TimelockEntry
	err := d.ledger.View(func(r ledger.Reader) error {
		var err error
		entry, err = loadTimelock(r, operationID)
		return err
	})
	return entry, err
}

// Quorum is the participation currently required for a new proposal.
func (d *DAO) Quorum() (uint64, error) {
	total, err := d.TotalVotingPower()
	if err != nil {
		return 0, err
	}
	return d.params.Quorum(total), nil
}
