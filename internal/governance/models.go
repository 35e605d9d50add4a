package governance

import (
	"github.com/shopspring/decimal"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/workflows"
)

// ProposalStatus represents the lifecycle stage of a proposal
type ProposalStatus string

const (
	StatusActive   ProposalStatus = "active"
	StatusPassed   ProposalStatus = "passed"
	StatusFailed   ProposalStatus = "failed"
	StatusExecuted ProposalStatus = "executed"
)

var proposalLifecycle = workflows.NewStateMachine(map[ProposalStatus][]ProposalStatus{
	StatusActive: {StatusPassed, StatusFailed},
	StatusPassed: {StatusExecuted},
})

// Recognized proposal types. Other tags can be proposed but never executed.
const (
	TypeAssetFunding   ledger.Symbol = "asset_funding"
	TypeRateAdjustment ledger.Symbol = "rate_adjustment"
	TypePolicyChange   ledger.Symbol = "policy_change"
)

// VoteChoice is a ballot option
type VoteChoice string

const (
	VoteYes     VoteChoice = "yes"
	VoteNo      VoteChoice = "no"
	VoteAbstain VoteChoice = "abstain"
)

func (v VoteChoice) valid() bool {
	switch v {
	case VoteYes, VoteNo, VoteAbstain:
		return true
	}
	return false
}

// Proposal is a governance proposal with weighted tallies
type Proposal struct {
	ID                   ledger.Symbol    `json:"id"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	Proposer             ledger.Address   `json:"proposer"`
	ProposalType         ledger.Symbol    `json:"proposal_type"`
	TargetAsset          *ledger.Symbol   `json:"target_asset,omitempty"`
	Amount               *decimal.Decimal `json:"amount,omitempty"`
	StartTime            uint64           `json:"start_time"`
	EndTime              uint64           `json:"end_time"`
	Status               ProposalStatus   `json:"status"`
	YesVotes             decimal.Decimal  `json:"yes_votes"`
	NoVotes              decimal.Decimal  `json:"no_votes"`
	TotalVotes           decimal.Decimal  `json:"total_votes"`
	EquityBoostThreshold int32            `json:"equity_boost_threshold"`
	VoteCount            int              `json:"vote_count"`
}

// Vote is a recorded ballot
type Vote struct {
	Voter       ledger.Address  `json:"voter"`
	ProposalID  ledger.Symbol   `json:"proposal_id"`
	Vote        VoteChoice      `json:"vote"`
	VotingPower decimal.Decimal `json:"voting_power"`
	EquityBoost decimal.Decimal `json:"equity_boost"`
	TotalPower  decimal.Decimal `json:"total_power"`
	EquityScore int32           `json:"equity_score"`
	Timestamp   uint64          `json:"timestamp"`
}

// VoterData holds a voter's stake and equity standing
type VoterData struct {
	Address        ledger.Address  `json:"address"`
	StakeAmount    decimal.Decimal `json:"stake_amount"`
	EquityScore    int32           `json:"equity_score"`
	VotingPower    decimal.Decimal `json:"voting_power"`
	LastVoteTime   uint64          `json:"last_vote_time"`
	TotalVotesCast int32           `json:"total_votes_cast"`
}

func newVoter(addr ledger.Address) VoterData {
	return VoterData{
		Address:     addr,
		StakeAmount: decimal.Zero,
		VotingPower: decimal.Zero,
	}
}

// Config is the governance configuration persisted at initialization
type Config struct {
	Admin                 ledger.Address `json:"admin"`
	Oracle                ledger.Address `json:"oracle"`
	LoanPool              ledger.Address `json:"loan_pool"`
	MinProposalDuration   uint64         `json:"min_proposal_duration"`
	QuorumThreshold       int32          `json:"quorum_threshold"`
	EquityBoostMultiplier int32          `json:"equity_boost_multiplier"`
}

// Stats holds the running governance counters
type Stats struct {
	TotalProposals   int32           `json:"total_proposals"`
	Active           int32           `json:"active"`
	Passed           int32           `json:"passed"`
	Failed           int32           `json:"failed"`
	Executed         int32           `json:"executed"`
	Voters           int32           `json:"voters"`
	TotalVotingPower decimal.Decimal `json:"total_voting_power"`
}

// InitializeRequest represents a request to initialize governance
type InitializeRequest struct {
	Admin               ledger.Address `json:"admin" binding:"required"`
	Oracle              ledger.Address `json:"oracle" binding:"required"`
	LoanPool            ledger.Address `json:"loan_pool" binding:"required"`
	MinProposalDuration uint64         `json:"min_proposal_duration"`
}

// CreateProposalRequest represents a request to open a proposal
type CreateProposalRequest struct {
	Proposer     ledger.Address   `json:"proposer"`
	Title        string           `json:"title" binding:"required"`
	Description  string           `json:"description"`
	ProposalType ledger.Symbol    `json:"proposal_type" binding:"required"`
	TargetAsset  *ledger.Symbol   `json:"target_asset,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Duration     uint64           `json:"duration"`
}

// VoteRequest represents a ballot cast on a proposal
type VoteRequest struct {
	Voter      ledger.Address `json:"voter"`
	ProposalID ledger.Symbol  `json:"proposal_id"`
	Choice     VoteChoice     `json:"choice" binding:"required"`
}

// ProposalRequest identifies a proposal for finalization or execution
type ProposalRequest struct {
	ProposalID ledger.Symbol `json:"proposal_id"`
}

// UpdateVoterDataRequest is an oracle update of a voter's standing
type UpdateVoterDataRequest struct {
	Voter       ledger.Address  `json:"voter"`
	StakeAmount decimal.Decimal `json:"stake_amount"`
	EquityScore int32           `json:"equity_score"`
}
