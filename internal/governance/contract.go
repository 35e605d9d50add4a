package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/amount"
)

// ContractName is the storage namespace and journal name of governance.
const ContractName = "governance"

const (
	MethodInitialize      = "initialize"
	MethodCreateProposal  = "create_proposal"
	MethodVote            = "vote"
	MethodFinalize        = "finalize_proposal"
	MethodExecute         = "execute_proposal"
	MethodUpdateVoterData = "update_voter_data"
)

// Contract runs equity-weighted voting on proposals.
type Contract struct {
	rt     *ledger.Runtime
	logger *zap.Logger
}

// NewContract creates governance on top of rt.
func NewContract(rt *ledger.Runtime, logger *zap.Logger) *Contract {
	return &Contract{rt: rt, logger: logger}
}

func (c *Contract) Name() string {
	return ContractName
}

// Initialize stores the principals and minimum proposal duration. Quorum and
// boost multiplier start at their defaults.
func (c *Contract) Initialize(ctx context.Context, caller ledger.Address, req InitializeRequest) error {
	return c.rt.Execute(ctx, c.call(MethodInitialize, caller, req), func(tx *ledger.Tx) error {
		exists, err := tx.Has(keyConfig)
		if err != nil {
			return err
		}
		if exists {
			return ledger.ErrAlreadyInitialized
		}
		if err := ledger.ValidateAddresses(req.Admin, req.Oracle, req.LoanPool); err != nil {
			return err
		}

		cfg := Config{
			Admin:                 req.Admin,
			Oracle:                req.Oracle,
			LoanPool:              req.LoanPool,
			MinProposalDuration:   req.MinProposalDuration,
			QuorumThreshold:       DefaultQuorumThreshold,
			EquityBoostMultiplier: DefaultEquityBoostMultiplier,
		}
		if err := tx.Put(keyConfig, cfg); err != nil {
			return err
		}
		return tx.Put(keyStats, Stats{TotalVotingPower: decimal.Zero})
	})
}

// CreateProposal opens a proposal for voting until now+duration.
func (c *Contract) CreateProposal(ctx context.Context, caller ledger.Address, req CreateProposalRequest) (ledger.Symbol, error) {
	var id ledger.Symbol
	err := c.rt.Execute(ctx, c.call(MethodCreateProposal, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if err := req.Proposer.Validate(); err != nil {
			return err
		}
		if err := req.ProposalType.Validate(); err != nil {
			return err
		}
		if req.TargetAsset != nil {
			if err := req.TargetAsset.Validate(); err != nil {
				return err
			}
		}
		if req.Amount != nil && (!amount.Valid(*req.Amount) || req.Amount.IsNegative()) {
			return ErrInvalidInput
		}
		if req.Title == "" {
			return ErrInvalidInput
		}
		if req.Duration < cfg.MinProposalDuration {
			return ErrDurationTooShort
		}

		now := tx.Timestamp()
		if req.Duration > math.MaxUint64-now {
			return ErrInvalidInput
		}

		id = ledger.ShortID("prop", req.Proposer.String(), req.Title, ledger.FormatTimestamp(now))
		exists, err := tx.Has(proposalKey(id))
		if err != nil {
			return err
		}
		if exists {
			return ErrProposalExists
		}

		proposal := Proposal{
			ID:                   id,
			Title:                req.Title,
			Description:          req.Description,
			Proposer:             req.Proposer,
			ProposalType:         req.ProposalType,
			TargetAsset:          req.TargetAsset,
			Amount:               req.Amount,
			StartTime:            now,
			EndTime:              now + req.Duration,
			Status:               StatusActive,
			YesVotes:             decimal.Zero,
			NoVotes:              decimal.Zero,
			TotalVotes:           decimal.Zero,
			EquityBoostThreshold: DefaultEquityBoostThreshold,
		}
		if err := tx.Put(proposalKey(id), proposal); err != nil {
			return err
		}
		if err := tx.Put(activeKey(id), id); err != nil {
			return err
		}
		return updateStats(tx, func(s *Stats) {
			s.TotalProposals++
			s.Active++
		})
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Proposal created",
		zap.String("proposal_id", id.String()),
		zap.String("proposal_type", req.ProposalType.String()),
		zap.Uint64("duration", req.Duration))
	return id, nil
}

// Vote records a weighted ballot and returns its total power. Unknown voters
// vote with zero power and are registered.
func (c *Contract) Vote(ctx context.Context, caller ledger.Address, req VoteRequest) (decimal.Decimal, error) {
	power := decimal.Zero
	err := c.rt.Execute(ctx, c.call(MethodVote, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if err := req.Voter.Validate(); err != nil {
			return err
		}
		proposal, err := loadProposal(tx, req.ProposalID)
		if err != nil {
			return err
		}
		if !req.Choice.valid() {
			return ErrInvalidVote
		}
		if proposal.Status != StatusActive {
			return ErrProposalNotActive
		}
		now := tx.Timestamp()
		if now > proposal.EndTime {
			return ErrVotingEnded
		}

		voted, err := tx.Has(ballotKey(req.ProposalID, req.Voter))
		if err != nil {
			return err
		}
		if voted {
			return ErrAlreadyVoted
		}

		voter := newVoter(req.Voter)
		known, err := tx.Get(voterKey(req.Voter), &voter)
		if err != nil {
			return err
		}

		votingPower := VotingPower(voter)
		boost := EquityBoost(voter, proposal.EquityBoostThreshold, cfg.EquityBoostMultiplier)
		power = votingPower.Add(boost)

		vote := Vote{
			Voter:       req.Voter,
			ProposalID:  req.ProposalID,
			Vote:        req.Choice,
			VotingPower: votingPower,
			EquityBoost: boost,
			TotalPower:  power,
			EquityScore: voter.EquityScore,
			Timestamp:   now,
		}
		if err := tx.Put(voteKey(req.ProposalID, proposal.VoteCount), vote); err != nil {
			return err
		}
		if err := tx.Put(ballotKey(req.ProposalID, req.Voter), true); err != nil {
			return err
		}

		switch req.Choice {
		case VoteYes:
			proposal.YesVotes = proposal.YesVotes.Add(power)
		case VoteNo:
			proposal.NoVotes = proposal.NoVotes.Add(power)
		}
		proposal.TotalVotes = proposal.TotalVotes.Add(power)
		if !amount.Valid(proposal.YesVotes) || !amount.Valid(proposal.NoVotes) || !amount.Valid(proposal.TotalVotes) {
			return ErrInvalidInput
		}
		proposal.VoteCount++
		if err := tx.Put(proposalKey(req.ProposalID), proposal); err != nil {
			return err
		}

		voter.LastVoteTime = now
		voter.TotalVotesCast++
		if err := tx.Put(voterKey(req.Voter), voter); err != nil {
			return err
		}
		if known {
			return nil
		}
		return updateStats(tx, func(s *Stats) { s.Voters++ })
	})
	if err != nil {
		return decimal.Zero, err
	}
	return power, nil
}

// FinalizeProposal closes voting after the end time and returns the outcome.
// Anyone may call it.
func (c *Contract) FinalizeProposal(ctx context.Context, caller ledger.Address, proposalID ledger.Symbol) (ProposalStatus, error) {
	var outcome ProposalStatus
	err := c.rt.Execute(ctx, c.call(MethodFinalize, caller, ProposalRequest{ProposalID: proposalID}), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		proposal, err := loadProposal(tx, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status != StatusActive {
			return ErrProposalNotActive
		}
		if tx.Timestamp() <= proposal.EndTime {
			return ErrVotingNotEnded
		}

		var stats Stats
		if _, err := tx.Get(keyStats, &stats); err != nil {
			return err
		}
		outcome = Outcome(proposal, stats.TotalVotingPower, cfg.QuorumThreshold)
		if !proposalLifecycle.CanTransition(proposal.Status, outcome) {
			return fmt.Errorf("illegal proposal transition %s -> %s", proposal.Status, outcome)
		}

		proposal.Status = outcome
		if err := tx.Put(proposalKey(proposalID), proposal); err != nil {
			return err
		}
		if err := tx.Delete(activeKey(proposalID)); err != nil {
			return err
		}
		return updateStats(tx, func(s *Stats) {
			s.Active--
			if outcome == StatusPassed {
				s.Passed++
			} else {
				s.Failed++
			}
		})
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Proposal finalized",
		zap.String("proposal_id", proposalID.String()),
		zap.String("outcome", string(outcome)))
	return outcome, nil
}

// ExecuteProposal marks a passed proposal executed. Admin only. Effects on
// other contracts are not applied here.
func (c *Contract) ExecuteProposal(ctx context.Context, caller ledger.Address, proposalID ledger.Symbol) error {
	var proposal Proposal
	err := c.rt.Execute(ctx, c.call(MethodExecute, caller, ProposalRequest{ProposalID: proposalID}), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Admin {
			return ledger.ErrUnauthorized
		}
		proposal, err = loadProposal(tx, proposalID)
		if err != nil {
			return err
		}
		if !proposalLifecycle.CanTransition(proposal.Status, StatusExecuted) {
			return ErrProposalNotPassed
		}

		switch proposal.ProposalType {
		case TypeAssetFunding, TypeRateAdjustment, TypePolicyChange:
		default:
			return ErrUnknownProposalType
		}

		proposal.Status = StatusExecuted
		if err := tx.Put(proposalKey(proposalID), proposal); err != nil {
			return err
		}
		return updateStats(tx, func(s *Stats) {
			s.Passed--
			s.Executed++
		})
	})
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("proposal_id", proposalID.String()),
		zap.String("proposal_type", proposal.ProposalType.String()),
	}
	if proposal.TargetAsset != nil {
		fields = append(fields, zap.String("target_asset", proposal.TargetAsset.String()))
	}
	if proposal.Amount != nil {
		fields = append(fields, zap.String("amount", proposal.Amount.String()))
	}
	if proposal.ProposalType == TypeAssetFunding && (proposal.TargetAsset == nil || proposal.Amount == nil) {
		c.logger.Warn("Asset funding proposal executed without target asset or amount", fields...)
		return nil
	}
	c.logger.Info("Proposal executed", fields...)
	return nil
}

// UpdateVoterData sets a voter's stake and equity score and recomputes voting
// power. Oracle only.
func (c *Contract) UpdateVoterData(ctx context.Context, caller ledger.Address, req UpdateVoterDataRequest) error {
	return c.rt.Execute(ctx, c.call(MethodUpdateVoterData, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Oracle {
			return ledger.ErrUnauthorized
		}
		if err := req.Voter.Validate(); err != nil {
			return err
		}
		if !amount.Valid(req.StakeAmount) || req.StakeAmount.IsNegative() {
			return ErrInvalidInput
		}
		if req.EquityScore < 0 || req.EquityScore > 100 {
			return ErrInvalidInput
		}

		voter := newVoter(req.Voter)
		known, err := tx.Get(voterKey(req.Voter), &voter)
		if err != nil {
			return err
		}
		previous := voter.VotingPower

		voter.StakeAmount = req.StakeAmount
		voter.EquityScore = req.EquityScore
		voter.VotingPower = VotingPower(voter)
		if err := tx.Put(voterKey(req.Voter), voter); err != nil {
			return err
		}

		return updateStats(tx, func(s *Stats) {
			if !known {
				s.Voters++
			}
			s.TotalVotingPower = s.TotalVotingPower.Sub(previous).Add(voter.VotingPower)
		})
	})
}

// GetProposal returns a single proposal.
func (c *Contract) GetProposal(ctx context.Context, id ledger.Symbol) (*Proposal, error) {
	var proposal Proposal
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		var err error
		proposal, err = loadProposal(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// GetProposalVotes lists a proposal's ballots in the order they were cast.
// An unknown proposal has no votes.
func (c *Contract) GetProposalVotes(ctx context.Context, id ledger.Symbol) ([]Vote, error) {
	var votes []Vote
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		if err := id.Validate(); err != nil {
			return err
		}
		var err error
		votes, err = ledger.ScanAll[Vote](tx, votePrefix(id))
		return err
	})
	return votes, err
}

// GetVoterData returns a voter's standing.
func (c *Contract) GetVoterData(ctx context.Context, addr ledger.Address) (*VoterData, error) {
	var voter VoterData
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		if err := addr.Validate(); err != nil {
			return err
		}
		ok, err := tx.Get(voterKey(addr), &voter)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVoterNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &voter, nil
}

// GetActiveProposals lists active proposals ordered by id.
func (c *Contract) GetActiveProposals(ctx context.Context) ([]Proposal, error) {
	var proposals []Proposal
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		ids, err := ledger.ScanAll[ledger.Symbol](tx, prefixActive)
		if err != nil {
			return err
		}
		proposals = make([]Proposal, 0, len(ids))
		for _, id := range ids {
			p, err := loadProposal(tx, id)
			if err != nil {
				return fmt.Errorf("active index references proposal %s: %w", id, err)
			}
			proposals = append(proposals, p)
		}
		return nil
	})
	return proposals, err
}

// GetStats returns the running governance counters.
func (c *Contract) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{TotalVotingPower: decimal.Zero}
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		_, err := tx.Get(keyStats, &stats)
		return err
	})
	return stats, err
}

// Initialized reports whether Initialize has been committed.
func (c *Contract) Initialized(ctx context.Context) (bool, error) {
	var ok bool
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		var err error
		ok, err = tx.Has(keyConfig)
		return err
	})
	return ok, err
}

// Dispatch replays a journaled transaction.
func (c *Contract) Dispatch(ctx context.Context, caller ledger.Address, method string, args json.RawMessage) error {
	switch method {
	case MethodInitialize:
		var req InitializeRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.Initialize(ctx, caller, req)
	case MethodCreateProposal:
		var req CreateProposalRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		_, err := c.CreateProposal(ctx, caller, req)
		return err
	case MethodVote:
		var req VoteRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		_, err := c.Vote(ctx, caller, req)
		return err
	case MethodFinalize:
		var req ProposalRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		_, err := c.FinalizeProposal(ctx, caller, req.ProposalID)
		return err
	case MethodExecute:
		var req ProposalRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.ExecuteProposal(ctx, caller, req.ProposalID)
	case MethodUpdateVoterData:
		var req UpdateVoterDataRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.UpdateVoterData(ctx, caller, req)
	default:
		return fmt.Errorf("%w: %s.%s", ledger.ErrUnknownMethod, ContractName, method)
	}
}

func (c *Contract) call(method string, caller ledger.Address, args any) ledger.Call {
	return ledger.Call{Contract: ContractName, Method: method, Caller: caller, Args: args}
}

func loadConfig(tx *ledger.Tx) (Config, error) {
	var cfg Config
	ok, err := tx.Get(keyConfig, &cfg)
	if err != nil {
		return cfg, err
	}
	if !ok {
		return cfg, ledger.ErrNotInitialized
	}
	return cfg, nil
}

func loadProposal(tx *ledger.Tx, id ledger.Symbol) (Proposal, error) {
	var proposal Proposal
	ok, err := tx.Get(proposalKey(id), &proposal)
	if err != nil {
		return proposal, err
	}
	if !ok {
		return proposal, ErrProposalNotFound
	}
	return proposal, nil
}

func updateStats(tx *ledger.Tx, mutate func(*Stats)) error {
	stats := Stats{TotalVotingPower: decimal.Zero}
	if _, err := tx.Get(keyStats, &stats); err != nil {
		return err
	}
	mutate(&stats)
	if !amount.Valid(stats.TotalVotingPower) {
		return ErrInvalidInput
	}
	return tx.Put(keyStats, stats)
}
