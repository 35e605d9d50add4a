package revenue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/amount"
)

// ContractName is the storage namespace and journal name of the distributor.
const ContractName = "revenue_distributor"

const (
	MethodInitialize            = "initialize"
	MethodRecordRevenue         = "record_revenue"
	MethodDistributeRevenue     = "distribute_revenue"
	MethodUpdateEquityBonusRate = "update_equity_bonus_rate"
	MethodUpdateImpactBonusRate = "update_impact_bonus_rate"
)

// Contract records ride revenue and pays it out to investors.
type Contract struct {
	rt     *ledger.Runtime
	logger *zap.Logger
}

// NewContract creates the revenue distributor on top of rt.
func NewContract(rt *ledger.Runtime, logger *zap.Logger) *Contract {
	return &Contract{rt: rt, logger: logger}
}

func (c *Contract) Name() string {
	return ContractName
}

// Initialize stores the principals and the equity bonus rate. The impact
// bonus rate starts at DefaultImpactBonusRate.
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
		if req.EquityBonusRate < 0 || req.EquityBonusRate > MaxEquityBonusRate {
			return ErrInvalidRate
		}

		cfg := Config{
			Admin:           req.Admin,
			Oracle:          req.Oracle,
			LoanPool:        req.LoanPool,
			EquityBonusRate: req.EquityBonusRate,
			ImpactBonusRate: DefaultImpactBonusRate,
		}
		if err := tx.Put(keyConfig, cfg); err != nil {
			return err
		}
		return tx.Put(keyStats, Stats{TotalRevenueDistributed: decimal.Zero})
	})
}

// RecordRevenue overwrites the latest observation for an asset. Oracle only.
func (c *Contract) RecordRevenue(ctx context.Context, caller ledger.Address, req RecordRevenueRequest) error {
	return c.rt.Execute(ctx, c.call(MethodRecordRevenue, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Oracle {
			return ledger.ErrUnauthorized
		}
		if err := req.AssetID.Validate(); err != nil {
			return err
		}
		if !amount.Valid(req.RevenueAmount) || req.RevenueAmount.IsNegative() {
			return ErrInvalidInput
		}
		if req.RideCount < 0 || req.CO2Saved < 0 || req.UnderservedRides < 0 {
			return ErrInvalidInput
		}

		var prev RideRevenue
		seen, err := tx.Get(revenueKey(req.AssetID), &prev)
		if err != nil {
			return err
		}

		rev := RideRevenue{
			AssetID:          req.AssetID,
			RevenueAmount:    req.RevenueAmount,
			RideCount:        req.RideCount,
			CO2Saved:         req.CO2Saved,
			UnderservedRides: req.UnderservedRides,
			Timestamp:        tx.Timestamp(),
		}
		if err := tx.Put(revenueKey(req.AssetID), rev); err != nil {
			return err
		}

		return updateStats(tx, func(s *Stats) {
			if seen {
				s.Impact.CO2Saved -= int64(prev.CO2Saved)
				s.Impact.Rides -= int64(prev.RideCount)
				s.Impact.UnderservedRides -= int64(prev.UnderservedRides)
			} else {
				s.AssetsWithRevenue++
			}
			s.Impact.CO2Saved += int64(rev.CO2Saved)
			s.Impact.Rides += int64(rev.RideCount)
			s.Impact.UnderservedRides += int64(rev.UnderservedRides)
		})
	})
}

// DistributeRevenue pays the asset's latest revenue out to the given investor
// snapshot and returns the new distribution id. Admin only.
func (c *Contract) DistributeRevenue(ctx context.Context, caller ledger.Address, req DistributeRevenueRequest) (ledger.Symbol, error) {
	var (
		id    ledger.Symbol
		total decimal.Decimal
	)
	err := c.rt.Execute(ctx, c.call(MethodDistributeRevenue, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Admin {
			return ledger.ErrUnauthorized
		}

		var rev RideRevenue
		ok, err := tx.Get(revenueKey(req.AssetID), &rev)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRevenueNotFound
		}
		if err := validateSnapshot(req); err != nil {
			return err
		}

		id = ledger.ShortID("dist", req.AssetID.String(), ledger.FormatTimestamp(tx.Timestamp()))
		exists, err := tx.Has(distributionKey(id))
		if err != nil {
			return err
		}
		if exists {
			return ErrDistributionExists
		}

		split := Distribute(rev, cfg, req.Investors, req.InvestmentAmounts, req.EquityScores)
		dist := RevenueDistribution{
			ID:                 id,
			AssetID:            req.AssetID,
			TotalRevenue:       rev.RevenueAmount,
			DistributionAmount: split.DistributionAmount,
			EquityBonusPool:    split.EquityBonusPool,
			Timestamp:          tx.Timestamp(),
			Distributions:      split.Investors,
		}
		total = rev.RevenueAmount

		if err := tx.Put(distributionKey(id), dist); err != nil {
			return err
		}
		if err := tx.Put(assetDistributionKey(req.AssetID, id), id); err != nil {
			return err
		}
		return updateStats(tx, func(s *Stats) {
			s.TotalDistributions++
			s.TotalRevenueDistributed = s.TotalRevenueDistributed.Add(rev.RevenueAmount)
		})
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Revenue distributed",
		zap.String("distribution_id", id.String()),
		zap.String("asset_id", req.AssetID.String()),
		zap.String("total_revenue", total.String()),
		zap.Int("investors", len(req.Investors)))
	return id, nil
}

// UpdateEquityBonusRate sets the share of revenue reserved for equity bonuses (0..50). Admin only.
func (c *Contract) UpdateEquityBonusRate(ctx context.Context, caller ledger.Address, rate int32) error {
	return c.updateRate(ctx, caller, MethodUpdateEquityBonusRate, rate, MaxEquityBonusRate, func(cfg *Config) {
		cfg.EquityBonusRate = rate
	})
}

// UpdateImpactBonusRate sets the advisory impact bonus (0..25). Admin only.
func (c *Contract) UpdateImpactBonusRate(ctx context.Context, caller ledger.Address, rate int32) error {
	return c.updateRate(ctx, caller, MethodUpdateImpactBonusRate, rate, MaxImpactBonusRate, func(cfg *Config) {
		cfg.ImpactBonusRate = rate
	})
}

func (c *Contract) updateRate(ctx context.Context, caller ledger.Address, method string, rate, limit int32, apply func(*Config)) error {
	return c.rt.Execute(ctx, c.call(method, caller, UpdateRateRequest{Rate: rate}), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Admin {
			return ledger.ErrUnauthorized
		}
		if rate < 0 || rate > limit {
			return ErrInvalidRate
		}
		apply(&cfg)
		return tx.Put(keyConfig, cfg)
	})
}

// GetDistribution returns a single distribution.
func (c *Contract) GetDistribution(ctx context.Context, id ledger.Symbol) (*RevenueDistribution, error) {
	var dist RevenueDistribution
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		ok, err := tx.Get(distributionKey(id), &dist)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDistributionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dist, nil
}

// GetRevenue returns the latest observation for an asset.
func (c *Contract) GetRevenue(ctx context.Context, assetID ledger.Symbol) (*RideRevenue, error) {
	var rev RideRevenue
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		ok, err := tx.Get(revenueKey(assetID), &rev)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRevenueNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// GetAssetDistributions lists an asset's distributions ordered by id.
func (c *Contract) GetAssetDistributions(ctx context.Context, assetID ledger.Symbol) ([]RevenueDistribution, error) {
	var dists []RevenueDistribution
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		if err := assetID.Validate(); err != nil {
			return err
		}
		ids, err := ledger.ScanAll[ledger.Symbol](tx, assetDistributionPrefix(assetID))
		if err != nil {
			return err
		}
		dists = make([]RevenueDistribution, 0, len(ids))
		for _, id := range ids {
			var dist RevenueDistribution
			ok, err := tx.Get(distributionKey(id), &dist)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("asset index references missing distribution %s", id)
			}
			dists = append(dists, dist)
		}
		return nil
	})
	return dists, err
}

// GetImpactMetrics sums co2 saved, rides and underserved rides over the
// latest observation of every asset.
func (c *Contract) GetImpactMetrics(ctx context.Context) (ImpactMetrics, error) {
	stats, err := c.GetStats(ctx)
	return stats.Impact, err
}

// GetStats returns the running distributor counters.
func (c *Contract) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{TotalRevenueDistributed: decimal.Zero}
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		_, err := tx.Get(keyStats, &stats)
		return err
	})
	return stats, err
}

// GetConfig returns the persisted configuration, including current rates.
func (c *Contract) GetConfig(ctx context.Context) (Config, error) {
	var cfg Config
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		var err error
		cfg, err = loadConfig(tx)
		return err
	})
	return cfg, err
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
	case MethodRecordRevenue:
		var req RecordRevenueRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.RecordRevenue(ctx, caller, req)
	case MethodDistributeRevenue:
		var req DistributeRevenueRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		_, err := c.DistributeRevenue(ctx, caller, req)
		return err
	case MethodUpdateEquityBonusRate:
		var req UpdateRateRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.UpdateEquityBonusRate(ctx, caller, req.Rate)
	case MethodUpdateImpactBonusRate:
		var req UpdateRateRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.UpdateImpactBonusRate(ctx, caller, req.Rate)
	default:
		return fmt.Errorf("%w: %s.%s", ledger.ErrUnknownMethod, ContractName, method)
	}
}

func (c *Contract) call(method string, caller ledger.Address, args any) ledger.Call {
	return ledger.Call{Contract: ContractName, Method: method, Caller: caller, Args: args}
}

// validateSnapshot checks the parallel investor slices.
func validateSnapshot(req DistributeRevenueRequest) error {
	n := len(req.Investors)
	if len(req.InvestmentAmounts) != n || len(req.EquityScores) != n {
		return ErrInvalidInput
	}
	if err := ledger.ValidateAddresses(req.Investors...); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		amt := req.InvestmentAmounts[i]
		if !amount.Valid(amt) || amt.IsNegative() {
			return ErrInvalidInput
		}
		if req.EquityScores[i] < 0 || req.EquityScores[i] > 100 {
			return ErrInvalidInput
		}
	}
	return nil
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

func updateStats(tx *ledger.Tx, mutate func(*Stats)) error {
	stats := Stats{TotalRevenueDistributed: decimal.Zero}
	if _, err := tx.Get(keyStats, &stats); err != nil {
		return err
	}
	mutate(&stats)
	if !amount.Valid(stats.TotalRevenueDistributed) {
		return ErrInvalidInput
	}
	return tx.Put(keyStats, stats)
}
