package governance_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"credential-ledger/apperrors"
	"credential-ledger/db"
	"credential-ledger/governance"
	"credential-ledger/ledger"
	"credential-ledger/models"
	"credential-ledger/registry"
	"credential-ledger/repository"
)

const (
	daoAddr  = models.Address("0x00000000000000000000000000000000000000d0")
	guardian = models.Address("0x00000000000000000000000000000000000000f0")
	alice    = models.Address("0x00000000000000000000000000000000000000a1")
	bob      = models.Address("0x00000000000000000000000000000000000000b2")
	carol    = models.Address("0x00000000000000000000000000000000000000c3")
	dave     = models.Address("0x00000000000000000000000000000000000000d4")
	minnow   = models.Address("0x00000000000000000000000000000000000000e5")
	stranger = models.Address("0x00000000000000000000000000000000000000ff")
	issuerX  = models.Address("0x0000000000000000000000000000000000000abc")

	start = int64(1_700_000_000)
)

var testParams = governance.Params{
	VotingDelay:       time.Hour,
	VotingPeriod:      24 * time.Hour,
	MinDelay:          48 * time.Hour,
	GracePeriod:       7 * 24 * time.Hour,
	ProposalThreshold: 50,
	QuorumPercent:     50,
}

type DAOSuite struct {
	suite.Suite
	ledger   *ledger.Ledger
	clock    *ledger.ManualClock
	registry *registry.Registry
	dao      *governance.DAO
}

func TestDAOSuite(t *testing.T) {
	suite.Run(t, new(DAOSuite))
}

func (s *DAOSuite) SetupTest() {
	ldb, err := db.NewMemLevelDB()
	s.Require().NoError(err)
	s.T().Cleanup(func() { ldb.Close() })

	s.clock = ledger.NewManualClock(time.Unix(start, 0))
	s.ledger, err = ledger.NewLedger(repository.NewStateRepository(ldb), s.clock)
	s.Require().NoError(err)

	var auth registry.Authority
	s.registry, auth = registry.New(s.ledger, daoAddr)
	s.dao = governance.New(s.ledger, s.registry, auth, testParams, governance.WithGuardian(guardian))

	_, err = s.dao.Genesis(map[models.Address]uint64{
		alice: 100, bob: 100, carol: 100, dave: 90, minnow: 10,
	})
	s.Require().NoError(err)
}

func registerX() models.Action {
	return models.Action{Kind: models.ActionRegisterIssuer, Issuer: issuerX, Name: "Institute X", MetadataRef: "ipfs://x"}
}

func accreditX() models.Action {
	return models.Action{Kind: models.ActionAccreditIssuer, Issuer: issuerX}
}

func (s *DAOSuite) propose(proposer models.Address, action models.Action) uint64 {
	id, _, err := s.dao.Propose(proposer, "proposal", action)
	s.Require().NoError(err)
	return id
}

func (s *DAOSuite) vote(id uint64, voter models.Address, support bool) {
	_, err := s.dao.CastVote(voter, id, support)
	s.Require().NoError(err)
}

func (s *DAOSuite) state(id uint64) models.ProposalState {
	st, err := s.dao.State(id)
	s.Require().NoError(err)
	return st
}

// queueAll carries fresh proposals for actions through a winning vote and into the timelock.
func (s *DAOSuite) queueAll(actions ...models.Action) []uint64 {
	ids := make([]uint64, len(actions))
	for i, action := range actions {
		ids[i] = s.propose(alice, action)
	}
	s.clock.Advance(testParams.VotingDelay)
	for _, id := range ids {
		s.vote(id, alice, true)
		s.vote(id, bob, true)
	}
	s.clock.Advance(testParams.VotingPeriod + time.Second)
	for _, id := range ids {
		outcome, _, err := s.dao.Tally(stranger, id)
		s.Require().NoError(err)
		s.Require().Equal(models.ProposalSucceeded, outcome)
		_, _, err = s.dao.Queue(stranger, id)
		s.Require().NoError(err)
	}
	return ids
}

func (s *DAOSuite) TestGenesis() {
	total, err := s.dao.TotalVotingPower()
	s.Require().NoError(err)
	s.Equal(uint64(400), total)

	power, err := s.dao.VotingPower(carol)
	s.Require().NoError(err)
	s.Equal(uint64(100), power)

	voters, err := s.dao.Voters()
	s.Require().NoError(err)
	s.Len(voters, 5)
	s.Equal(uint64(10), voters[minnow])

	quorum, err := s.dao.Quorum()
	s.Require().NoError(err)
	s.Equal(uint64(200), quorum)

	applied, err := s.dao.GenesisApplied()
	s.Require().NoError(err)
	s.True(applied)

	_, err = s.dao.Genesis(map[models.Address]uint64{stranger: 1000})
	s.True(errors.Is(err, apperrors.ErrGenesisApplied))
}

// newDAO builds a DAO over an empty ledger without seeding voting power.
func newDAO(t *testing.T, params governance.Params) (*governance.DAO, *ledger.ManualClock) {
	t.Helper()
	ldb, err := db.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })

	clock := ledger.NewManualClock(time.Unix(start, 0))
	l, err := ledger.NewLedger(repository.NewStateRepository(ldb), clock)
	require.NoError(t, err)
	reg, auth := registry.New(l, daoAddr)
	return governance.New(l, reg, auth, params), clock
}

func TestGenesis_RejectsOverflowingAllocation(t *testing.T) {
	dao, _ := newDAO(t, testParams)

	_, err := dao.Genesis(map[models.Address]uint64{alice: math.MaxUint64, bob: 1})
	require.ErrorIs(t, err, apperrors.ErrVotingPowerOverflow)

	applied, err := dao.GenesisApplied()
	require.NoError(t, err)
	require.False(t, applied, "a rejected allocation leaves genesis open")
	total, err := dao.TotalVotingPower()
	require.NoError(t, err)
	require.Zero(t, total)

	_, err = dao.Genesis(map[models.Address]uint64{alice: math.MaxUint64})
	require.NoError(t, err)
}

func TestQuorum_RoundsUpOnSmallPools(t *testing.T) {
	params := testParams
	params.ProposalThreshold = 1
	dao, clock := newDAO(t, params)
	_, err := dao.Genesis(map[models.Address]uint64{alice: 1, bob: 1, carol: 1, dave: 1, minnow: 1})
	require.NoError(t, err)

	quorum, err := dao.Quorum()
	require.NoError(t, err)
	require.Equal(t, uint64(3), quorum)

	id, _, err := dao.Propose(alice, "register", registerX())
	require.NoError(t, err)
	clock.Advance(params.VotingDelay)
	for _, voter := range []models.Address{alice, bob} {
		_, err = dao.CastVote(voter, id, true)
		require.NoError(t, err)
	}
	clock.Advance(params.VotingPeriod + time.Second)

	outcome, _, err := dao.Tally(stranger, id)
	require.NoError(t, err)
	require.Equal(t, models.ProposalDefeated, outcome, "40% participation is below a 50% quorum")
}

func (s *DAOSuite) TestProposeRequiresPower() {
	_, _, err := s.dao.Propose(minnow, "accredit X", accreditX())
	s.True(errors.Is(err, apperrors.ErrInsufficientProposerPower))
	_, _, err = s.dao.Propose(stranger, "accredit X", accreditX())
	s.True(errors.Is(err, apperrors.ErrInsufficientProposerPower))
	_, _, err = s.dao.Propose(alice, "bad", models.Action{Kind: "mint", Issuer: issuerX})
	s.True(errors.Is(err, apperrors.ErrInvalidAction))

	id, receipt, err := s.dao.Propose(alice, "accredit X", accreditX())
	s.Require().NoError(err)
	s.Equal(uint64(1), id)
	s.Equal(models.EventProposalCreated, receipt.Events[0].Type)

	p, err := s.dao.Proposal(id)
	s.Require().NoError(err)
	s.Equal(models.ProposalPending, p.State)
	s.Equal(alice, p.Proposer)
	s.Equal(start+3600, p.StartTime)
	s.Equal(start+3600+86400, p.EndTime)
	s.Equal(uint64(400), p.SnapshotTotalPower)
	s.Equal(uint64(200), p.QuorumVotes)
	s.Equal(governance.OperationID(accreditX()), p.OperationID)
}

func (s *DAOSuite) TestVotingAndTally() {
	id := s.propose(alice, accreditX())

	_, err := s.dao.CastVote(bob, id, true)
	s.True(errors.Is(err, apperrors.ErrProposalNotActive), "voting has not opened")

	s.clock.Advance(testParams.VotingDelay)
	s.Equal(models.ProposalActive, s.state(id))
	s.vote(id, alice, true)
	s.vote(id, bob, true)
	s.vote(id, carol, false)

	_, err = s.dao.CastVote(bob, id, false)
	s.True(errors.Is(err, apperrors.ErrAlreadyVoted))
	_, err = s.dao.CastVote(stranger, id, true)
	s.True(errors.Is(err, apperrors.ErrNoVotingPower))

	_, _, err = s.dao.Tally(stranger, id)
	s.True(errors.Is(err, apperrors.ErrVotingNotEnded))

	p, err := s.dao.Proposal(id)
	s.Require().NoError(err)
	s.Equal(uint64(200), p.ForVotes)
	s.Equal(uint64(100), p.AgainstVotes)
	s.Equal(uint64(3), p.Voters)

	s.clock.Advance(testParams.VotingPeriod)
	s.Equal(models.ProposalActive, s.state(id), "end time is inclusive")
	s.clock.Advance(time.Second)
	s.Equal(models.ProposalEnded, s.state(id))

	_, err = s.dao.CastVote(dave, id, true)
	s.True(errors.Is(err, apperrors.ErrProposalNotActive))

	outcome, _, err := s.dao.Tally(stranger, id)
	s.Require().NoError(err)
	s.Equal(models.ProposalSucceeded, outcome)
	s.Equal(models.ProposalSucceeded, s.state(id))

	_, _, err = s.dao.Tally(stranger, id)
	s.True(errors.Is(err, apperrors.ErrAlreadyTallied))

	votes, err := s.dao.Votes(id)
	s.Require().NoError(err)
	s.Len(votes, 3)
	voted, err := s.dao.HasVoted(id, carol)
	s.Require().NoError(err)
	s.True(voted)
	voted, err = s.dao.HasVoted(id, dave)
	s.Require().NoError(err)
	s.False(voted)
}

func (s *DAOSuite) TestDefeatedProposals() {
	quorumMissed := s.propose(alice, accreditX())
	tied := s.propose(bob, registerX())

	s.clock.Advance(testParams.VotingDelay)
	s.vote(quorumMissed, alice, true)
	s.vote(tied, alice, true)
	s.vote(tied, bob, false)
	s.clock.Advance(testParams.VotingPeriod + time.Second)

	for _, id := range []uint64{quorumMissed, tied} {
		outcome, _, err := s.dao.Tally(stranger, id)
		s.Require().NoError(err)
		s.Equal(models.ProposalDefeated, outcome)

		_, _, err = s.dao.Queue(stranger, id)
		s.True(errors.Is(err, apperrors.ErrProposalNotSucceeded))
	}
}

func (s *DAOSuite) TestQueueAndExecute() {
	ids := s.queueAll(registerX())
	id := ids[0]
	s.Equal(models.ProposalQueued, s.state(id))

	p, err := s.dao.Proposal(id)
	s.Require().NoError(err)
	entry, err := s.dao.TimelockEntry(p.OperationID)
	s.Require().NoError(err)
	s.Require().NotNil(entry)
	s.Equal(p.ETA, entry.ETA)

	_, err = s.dao.Execute(stranger, id)
	s.True(errors.Is(err, apperrors.ErrTimelockNotDue))
	s.Equal(apperrors.KindTemporal, apperrors.KindOf(err))

	s.clock.Advance(testParams.MinDelay)
	receipt, err := s.dao.Execute(stranger, id)
	s.Require().NoError(err)
	s.Equal(governance.OpExecute, receipt.Op)
	s.Equal(models.EventIssuerRegistered, receipt.Events[0].Type)
	s.Equal(models.EventProposalExecuted, receipt.Events[1].Type)
	s.Equal(models.ProposalExecuted, s.state(id))

	rec, err := s.registry.Get(issuerX)
	s.Require().NoError(err)
	s.Equal(models.IssuerRegistered, rec.Status)

	_, err = s.dao.Execute(stranger, id)
	s.True(errors.Is(err, apperrors.ErrProposalFinalized))

	entry, err = s.dao.TimelockEntry(p.OperationID)
	s.Require().NoError(err)
	s.True(entry.Done)
}

func (s *DAOSuite) TestDuplicateActionCannotBeQueuedTwice() {
	first := s.propose(alice, accreditX())
	second := s.propose(bob, accreditX())
	s.clock.Advance(testParams.VotingDelay)
	for _, id := range []uint64{first, second} {
		s.vote(id, alice, true)
		s.vote(id, carol, true)
	}
	s.clock.Advance(testParams.VotingPeriod + time.Second)
	for _, id := range []uint64{first, second} {
		_, _, err := s.dao.Tally(stranger, id)
		s.Require().NoError(err)
	}

	_, _, err := s.dao.Queue(stranger, first)
	s.Require().NoError(err)
	_, _, err = s.dao.Queue(stranger, first)
	s.True(errors.Is(err, apperrors.ErrAlreadyQueued))
	_, _, err = s.dao.Queue(stranger, second)
	s.True(errors.Is(err, apperrors.ErrAlreadyQueued))
	s.Equal(models.ProposalSucceeded, s.state(second))
}

func (s *DAOSuite) TestFailedActionStaysQueuedAndRetryable() {
	ids := s.queueAll(accreditX(), registerX())
	accredit, register := ids[0], ids[1]
	s.clock.Advance(testParams.MinDelay)

	receipt, err := s.dao.Execute(stranger, accredit)
	s.True(errors.Is(err, apperrors.ErrNotRegistered))
	s.False(receipt.Success)
	s.Equal(models.ProposalQueued, s.state(accredit))

	_, err = s.dao.Execute(stranger, register)
	s.Require().NoError(err)
	_, err = s.dao.Execute(stranger, accredit)
	s.Require().NoError(err)

	ok, err := s.registry.IsAccredited(issuerX)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *DAOSuite) TestQueuedProposalExpires() {
	id := s.queueAll(registerX())[0]
	s.clock.Advance(testParams.MinDelay + testParams.GracePeriod)
	s.Equal(models.ProposalQueued, s.state(id))

	s.clock.Advance(time.Second)
	s.Equal(models.ProposalExpired, s.state(id))
	_, err := s.dao.Execute(stranger, id)
	s.True(errors.Is(err, apperrors.ErrProposalExpired))

	// the lapsed entry no longer blocks the same action
	again := s.queueAll(registerX())[0]
	s.Equal(models.ProposalQueued, s.state(again))
}

func (s *DAOSuite) TestCancel() {
	pending := s.propose(alice, accreditX())
	_, err := s.dao.Cancel(bob, pending)
	s.True(errors.Is(err, apperrors.ErrUnauthorized))

	_, err = s.dao.Cancel(alice, pending)
	s.Require().NoError(err)
	s.Equal(models.ProposalCanceled, s.state(pending))
	_, err = s.dao.Cancel(alice, pending)
	s.True(errors.Is(err, apperrors.ErrProposalFinalized))

	queued := s.queueAll(registerX())[0]
	_, err = s.dao.Cancel(guardian, queued)
	s.Require().NoError(err)

	p, err := s.dao.Proposal(queued)
	s.Require().NoError(err)
	entry, err := s.dao.TimelockEntry(p.OperationID)
	s.Require().NoError(err)
	s.True(entry.Canceled)

	s.clock.Advance(testParams.MinDelay)
	_, err = s.dao.Execute(stranger, queued)
	s.True(errors.Is(err, apperrors.ErrProposalFinalized))

	_, err = s.registry.Get(issuerX)
	s.True(errors.Is(err, apperrors.ErrIssuerNotFound))
}

func (s *DAOSuite) TestProposalsListing() {
	s.propose(alice, accreditX())
	s.propose(bob, registerX())

	list, err := s.dao.Proposals()
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(uint64(1), list[0].ID)
	s.Equal(uint64(2), list[1].ID)
	s.Equal(models.ProposalPending, list[1].State)

	_, err = s.dao.Proposal(3)
	s.True(errors.Is(err, apperrors.ErrProposalNotFound))
}
