package governance

import "mobility-finance/ledger-backend/internal/ledger"

const (
	ErrDurationTooShort    ledger.Code = "DURATION_TOO_SHORT"
	ErrProposalExists      ledger.Code = "PROPOSAL_EXISTS"
	ErrProposalNotFound    ledger.Code = "PROPOSAL_NOT_FOUND"
	ErrProposalNotActive   ledger.Code = "PROPOSAL_NOT_ACTIVE"
	ErrVotingEnded         ledger.Code = "VOTING_ENDED"
	ErrAlreadyVoted        ledger.Code = "ALREADY_VOTED"
	ErrVotingNotEnded      ledger.Code = "VOTING_NOT_ENDED"
	ErrProposalNotPassed   ledger.Code = "PROPOSAL_NOT_PASSED"
	ErrUnknownProposalType ledger.Code = "UNKNOWN_PROPOSAL_TYPE"
	ErrVoterNotFound       ledger.Code = "VOTER_NOT_FOUND"
	ErrInvalidVote         ledger.Code = "INVALID_VOTE"
	ErrInvalidInput        ledger.Code = "INVALID_INPUT"
)
