package governance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/amount"
)

const (
	admin    ledger.Address = "GADMIN0000000001"
	oracle   ledger.Address = "GORACLE000000001"
	loanPool ledger.Address = "CLOANPOOL0000001"
	alice    ledger.Address = "GALICE0000000001"
	bob      ledger.Address = "GBOB00000000001"
	keeper   ledger.Address = "GKEEPER000000001"

	minDuration = 60
	start       = 1_700_000_000
)

type fixture struct {
	gov   *Contract
	clock *ledger.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := ledger.NewManualClock(start)
	gov := NewContract(ledger.NewRuntime(ledger.NewMemoryStore(), clock), zap.NewNop())
	require.NoError(t, gov.Initialize(context.Background(), admin, InitializeRequest{
		Admin: admin, Oracle: oracle, LoanPool: loanPool, MinProposalDuration: minDuration,
	}))
	return &fixture{gov: gov, clock: clock}
}

func (f *fixture) setVoter(t *testing.T, addr ledger.Address, stake int64, score int32) {
	t.Helper()
	require.NoError(t, f.gov.UpdateVoterData(context.Background(), oracle, UpdateVoterDataRequest{
		Voter: addr, StakeAmount: decimal.NewFromInt(stake), EquityScore: score,
	}))
}

func (f *fixture) propose(t *testing.T, title string, kind ledger.Symbol, duration uint64) ledger.Symbol {
	t.Helper()
	id, err := f.gov.CreateProposal(context.Background(), alice, CreateProposalRequest{
		Proposer:     alice,
		Title:        title,
		Description:  "fund the riverside shuttle",
		ProposalType: kind,
		Duration:     duration,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) vote(t *testing.T, voter ledger.Address, id ledger.Symbol, choice VoteChoice) decimal.Decimal {
	t.Helper()
	power, err := f.gov.Vote(context.Background(), voter, VoteRequest{Voter: voter, ProposalID: id, Choice: choice})
	require.NoError(t, err)
	return power
}

func TestVote_EquityBoost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setVoter(t, bob, 100, 80)
	id := f.propose(t, "shuttle", TypeAssetFunding, 3600)

	power := f.vote(t, bob, id, VoteYes)
	assert.Equal(t, "150", power.String())

	p, err := f.gov.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "150", p.YesVotes.String())
	assert.Equal(t, "0", p.NoVotes.String())
	assert.Equal(t, "150", p.TotalVotes.String())

	votes, err := f.gov.GetProposalVotes(ctx, id)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "100", votes[0].VotingPower.String())
	assert.Equal(t, "50", votes[0].EquityBoost.String())
	assert.Equal(t, "150", votes[0].TotalPower.String())
	assert.Equal(t, int32(80), votes[0].EquityScore)

	voter, err := f.gov.GetVoterData(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int32(1), voter.TotalVotesCast)
	assert.Equal(t, uint64(start), voter.LastVoteTime)
}

func TestFinalize_PassesWithQuorum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setVoter(t, bob, 100, 80)
	id := f.propose(t, "shuttle", TypeAssetFunding, 3600)
	f.vote(t, bob, id, VoteYes)

	_, err := f.gov.FinalizeProposal(ctx, keeper, id)
	assert.ErrorIs(t, err, ErrVotingNotEnded)

	f.clock.Advance(3600)
	_, err = f.gov.FinalizeProposal(ctx, keeper, id)
	assert.ErrorIs(t, err, ErrVotingNotEnded)

	f.clock.Advance(1)
	outcome, err := f.gov.FinalizeProposal(ctx, keeper, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, outcome)

	_, err = f.gov.FinalizeProposal(ctx, keeper, id)
	assert.ErrorIs(t, err, ErrProposalNotActive)

	stats, err := f.gov.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), stats.TotalProposals)
	assert.Equal(t, int32(0), stats.Active)
	assert.Equal(t, int32(1), stats.Passed)
	assert.Equal(t, int32(1), stats.Voters)
	assert.Equal(t, "100", stats.TotalVotingPower.String())
}

func TestFinalize_FailsBelowQuorum(t *testing.T) {
	f := newFixture(t)
	f.setVoter(t, alice, 1000, 0)
	f.setVoter(t, bob, 50, 0)
	id := f.propose(t, "policy", TypePolicyChange, minDuration)
	f.vote(t, bob, id, VoteYes)

	f.clock.Advance(minDuration + 1)
	outcome, err := f.gov.FinalizeProposal(context.Background(), keeper, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, outcome)
}

func TestFinalize_TieFails(t *testing.T) {
	f := newFixture(t)
	f.setVoter(t, alice, 100, 0)
	f.setVoter(t, bob, 100, 0)
	id := f.propose(t, "rates", TypeRateAdjustment, minDuration)
	f.vote(t, alice, id, VoteYes)
	f.vote(t, bob, id, VoteNo)

	f.clock.Advance(minDuration + 1)
	outcome, err := f.gov.FinalizeProposal(context.Background(), keeper, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, outcome)
}

func TestVote_AbstainCountsTowardTotalOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setVoter(t, alice, 40, 0)
	f.setVoter(t, bob, 60, 90)
	id := f.propose(t, "rates", TypeRateAdjustment, minDuration)

	f.vote(t, alice, id, VoteNo)
	f.vote(t, bob, id, VoteAbstain)

	p, err := f.gov.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "0", p.YesVotes.String())
	assert.Equal(t, "40", p.NoVotes.String())
	assert.Equal(t, "130", p.TotalVotes.String())
	assert.True(t, p.YesVotes.Add(p.NoVotes).LessThanOrEqual(p.TotalVotes))

	votes, err := f.gov.GetProposalVotes(ctx, id)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, alice, votes[0].Voter)
	assert.Equal(t, bob, votes[1].Voter)

	sum := decimal.Zero
	for _, v := range votes {
		sum = sum.Add(v.TotalPower)
	}
	assert.True(t, sum.Equal(p.TotalVotes))
}

func TestVote_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setVoter(t, bob, 10, 0)
	id := f.propose(t, "shuttle", TypeAssetFunding, minDuration)

	_, err := f.gov.Vote(ctx, bob, VoteRequest{Voter: bob, ProposalID: "nope", Choice: VoteYes})
	assert.ErrorIs(t, err, ErrProposalNotFound)

	_, err = f.gov.Vote(ctx, bob, VoteRequest{Voter: bob, ProposalID: "nope", Choice: "maybe"})
	assert.ErrorIs(t, err, ErrProposalNotFound)

	_, err = f.gov.Vote(ctx, bob, VoteRequest{Voter: bob, ProposalID: id, Choice: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidVote)

	f.vote(t, bob, id, VoteYes)
	_, err = f.gov.Vote(ctx, bob, VoteRequest{Voter: bob, ProposalID: id, Choice: VoteNo})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	f.clock.Advance(minDuration + 1)
	_, err = f.gov.Vote(ctx, alice, VoteRequest{Voter: alice, ProposalID: id, Choice: VoteNo})
	assert.ErrorIs(t, err, ErrVotingEnded)

	_, err = f.gov.FinalizeProposal(ctx, keeper, id)
	require.NoError(t, err)
	_, err = f.gov.Vote(ctx, alice, VoteRequest{Voter: alice, ProposalID: id, Choice: VoteNo})
	assert.ErrorIs(t, err, ErrProposalNotActive)
}

func TestVote_RejectsOverflowingTally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.gov.UpdateVoterData(ctx, oracle, UpdateVoterDataRequest{
		Voter: bob, StakeAmount: amount.MaxI128, EquityScore: 90,
	}))
	id := f.propose(t, "shuttle", TypeAssetFunding, minDuration)

	_, err := f.gov.Vote(ctx, bob, VoteRequest{Voter: bob, ProposalID: id, Choice: VoteYes})
	assert.ErrorIs(t, err, ErrInvalidInput)

	proposal, err := f.gov.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.True(t, proposal.YesVotes.IsZero())
	assert.True(t, proposal.TotalVotes.IsZero())
	assert.Zero(t, proposal.VoteCount)
}

func TestVote_UnknownVoterIsRegistered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.propose(t, "shuttle", TypeAssetFunding, minDuration)

	_, err := f.gov.GetVoterData(ctx, bob)
	assert.ErrorIs(t, err, ErrVoterNotFound)

	power := f.vote(t, bob, id, VoteYes)
	assert.True(t, power.IsZero())

	voter, err := f.gov.GetVoterData(ctx, bob)
	require.NoError(t, err)
	assert.True(t, voter.StakeAmount.IsZero())
	assert.Equal(t, int32(1), voter.TotalVotesCast)

	stats, err := f.gov.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), stats.Voters)

	// a later oracle update must not count the voter twice
	f.setVoter(t, bob, 25, 10)
	stats, err = f.gov.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), stats.Voters)
	assert.Equal(t, "25", stats.TotalVotingPower.String())
}

func TestCreateProposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gov.CreateProposal(ctx, alice, CreateProposalRequest{
		Proposer: alice, Title: "short", ProposalType: TypePolicyChange, Duration: minDuration - 1,
	})
	assert.ErrorIs(t, err, ErrDurationTooShort)

	target := ledger.Symbol("ebike_001")
	amt := decimal.NewFromInt(5000)
	req := CreateProposalRequest{
		Proposer: alice, Title: "fund", ProposalType: TypeAssetFunding,
		TargetAsset: &target, Amount: &amt, Duration: minDuration,
	}
	id, err := f.gov.CreateProposal(ctx, alice, req)
	require.NoError(t, err)
	assert.Equal(t, ledger.ShortID("prop", alice.String(), "fund", ledger.FormatTimestamp(start)), id)

	_, err = f.gov.CreateProposal(ctx, alice, req)
	assert.ErrorIs(t, err, ErrProposalExists)

	p, err := f.gov.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, uint64(start), p.StartTime)
	assert.Equal(t, uint64(start+minDuration), p.EndTime)
	assert.Equal(t, int32(DefaultEquityBoostThreshold), p.EquityBoostThreshold)
	require.NotNil(t, p.TargetAsset)
	assert.Equal(t, target, *p.TargetAsset)
	require.NotNil(t, p.Amount)
	assert.Equal(t, "5000", p.Amount.String())
}

func TestExecuteProposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setVoter(t, bob, 100, 0)

	known := f.propose(t, "shuttle", TypeAssetFunding, minDuration)
	unknown := f.propose(t, "budget", "budget_cut", minDuration)
	f.vote(t, bob, known, VoteYes)
	f.vote(t, bob, unknown, VoteYes)

	assert.ErrorIs(t, f.gov.ExecuteProposal(ctx, admin, known), ErrProposalNotPassed)

	f.clock.Advance(minDuration + 1)
	for _, id := range []ledger.Symbol{known, unknown} {
		outcome, err := f.gov.FinalizeProposal(ctx, keeper, id)
		require.NoError(t, err)
		require.Equal(t, StatusPassed, outcome)
	}

	assert.ErrorIs(t, f.gov.ExecuteProposal(ctx, bob, known), ledger.ErrUnauthorized)
	require.NoError(t, f.gov.ExecuteProposal(ctx, admin, known))
	assert.ErrorIs(t, f.gov.ExecuteProposal(ctx, admin, known), ErrProposalNotPassed)

	assert.ErrorIs(t, f.gov.ExecuteProposal(ctx, admin, unknown), ErrUnknownProposalType)
	p, err := f.gov.GetProposal(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, p.Status)

	stats, err := f.gov.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), stats.Passed)
	assert.Equal(t, int32(1), stats.Executed)
}

func TestGetActiveProposals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.propose(t, "one", TypePolicyChange, minDuration)
	second := f.propose(t, "two", TypePolicyChange, minDuration*10)

	active, err := f.gov.GetActiveProposals(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Less(t, string(active[0].ID), string(active[1].ID))

	f.clock.Advance(minDuration + 1)
	_, err = f.gov.FinalizeProposal(ctx, keeper, first)
	require.NoError(t, err)

	active, err = f.gov.GetActiveProposals(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second, active[0].ID)
}

func TestUpdateVoterData_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.gov.UpdateVoterData(ctx, admin, UpdateVoterDataRequest{Voter: bob, StakeAmount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	err = f.gov.UpdateVoterData(ctx, oracle, UpdateVoterDataRequest{Voter: bob, StakeAmount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = f.gov.UpdateVoterData(ctx, oracle, UpdateVoterDataRequest{Voter: bob, StakeAmount: decimal.NewFromInt(1), EquityScore: 101})
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.setVoter(t, bob, 300, 50)
	f.setVoter(t, bob, 120, 50)
	stats, err := f.gov.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "120", stats.TotalVotingPower.String())
}

func TestUpdateVoterData_RejectsOverflowingTotalPower(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.gov.UpdateVoterData(ctx, oracle, UpdateVoterDataRequest{
		Voter: bob, StakeAmount: amount.MaxI128, EquityScore: 50,
	}))

	err := f.gov.UpdateVoterData(ctx, oracle, UpdateVoterDataRequest{
		Voter: alice, StakeAmount: decimal.NewFromInt(1), EquityScore: 50,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	stats, err := f.gov.GetStats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.TotalVotingPower.Equal(amount.MaxI128))
	assert.Equal(t, int32(1), stats.Voters)

	_, err = f.gov.GetVoterData(ctx, alice)
	assert.ErrorIs(t, err, ErrVoterNotFound)
}
