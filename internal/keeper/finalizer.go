package keeper

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/governance"
	"mobility-finance/ledger-backend/internal/ledger"
)

// GovernanceClient is the part of the governance contract the finalizer uses
type GovernanceClient interface {
	GetActiveProposals(ctx context.Context) ([]governance.Proposal, error)
	FinalizeProposal(ctx context.Context, caller ledger.Address, proposalID ledger.Symbol) (governance.ProposalStatus, error)
}

// FinalizeResult counts the outcome of one finalizer pass
type FinalizeResult struct {
	Due     int `json:"due"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Finalizer closes active proposals whose voting period has ended.
// finalize_proposal is permissionless, so the keeper signs as its own
// principal.
type Finalizer struct {
	gov       GovernanceClient
	clock     ledger.Clock
	principal ledger.Address
	batchSize int
	logger    *zap.Logger
}

// NewFinalizer creates a finalizer job
func NewFinalizer(gov GovernanceClient, clock ledger.Clock, principal ledger.Address, batchSize int, logger *zap.Logger) *Finalizer {
	return &Finalizer{
		gov:       gov,
		clock:     clock,
		principal: principal,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (f *Finalizer) Name() string {
	return "proposal_finalizer"
}

func (f *Finalizer) Run(ctx context.Context) error {
	_, err := f.FinalizeDue(ctx)
	return err
}

// FinalizeDue finalizes up to batchSize expired proposals, oldest first
func (f *Finalizer) FinalizeDue(ctx context.Context) (FinalizeResult, error) {
	var res FinalizeResult

	active, err := f.gov.GetActiveProposals(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list active proposals: %w", err)
	}

	now := f.clock.Now()
	var due []governance.Proposal
	for _, p := range active {
		if now > p.EndTime {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].EndTime != due[j].EndTime {
			return due[i].EndTime < due[j].EndTime
		}
		return due[i].ID < due[j].ID
	})
	if f.batchSize > 0 && len(due) > f.batchSize {
		due = due[:f.batchSize]
	}
	res.Due = len(due)

	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		status, err := f.gov.FinalizeProposal(ctx, f.principal, p.ID)
		switch {
		case err == nil:
			if status == governance.StatusPassed {
				res.Passed++
			} else {
				res.Failed++
			}
			f.logger.Info("Proposal finalized",
				zap.String("proposal_id", p.ID.String()),
				zap.String("status", string(status)))
		case errors.Is(err, governance.ErrProposalNotActive), errors.Is(err, governance.ErrVotingNotEnded):
			// finalized elsewhere, or the ledger clock is behind ours
			res.Skipped++
		default:
			return res, fmt.Errorf("failed to finalize %s: %w", p.ID, err)
		}
	}

	if res.Due > 0 {
		f.logger.Info("Finalizer pass completed",
			zap.Int("due", res.Due),
			zap.Int("passed", res.Passed),
			zap.Int("failed", res.Failed),
			zap.Int("skipped", res.Skipped))
	}
	return res, nil
}
