package governance

import (
	"github.com/shopspring/decimal"

	"mobility-finance/ledger-backend/pkg/amount"
)

const (
	DefaultQuorumThreshold       = 10
	DefaultEquityBoostMultiplier = 150
	DefaultEquityBoostThreshold  = 70
)

// VotingPower is one-to-one with stake.
func VotingPower(v VoterData) decimal.Decimal {
	return v.StakeAmount
}

// EquityBoost returns the extra power granted to voters at or above the
// proposal's equity threshold.
func EquityBoost(v VoterData, threshold, multiplier int32) decimal.Decimal {
	if v.EquityScore < threshold {
		return decimal.Zero
	}
	return amount.Percent(v.VotingPower, int64(multiplier-100))
}

// Participation returns total votes as a whole percent of all voting power.
// Boosted votes can push it past 100.
func Participation(totalVotes, totalPossible decimal.Decimal) decimal.Decimal {
	if totalPossible.IsZero() {
		return decimal.Zero
	}
	return amount.MulDiv(totalVotes, decimal.NewFromInt(100), totalPossible)
}

// Outcome decides a finalized proposal.
func Outcome(p Proposal, totalPossible decimal.Decimal, quorum int32) ProposalStatus {
	if Participation(p.TotalVotes, totalPossible).LessThan(decimal.NewFromInt32(quorum)) {
		return StatusFailed
	}
	if p.YesVotes.GreaterThan(p.NoVotes) {
		return StatusPassed
	}
	return StatusFailed
}
