package revenue

import (
	"github.com/shopspring/decimal"

	"mobility-finance/ledger-backend/internal/ledger"
)

// RideRevenue is the latest oracle observation for an asset
type RideRevenue struct {
	AssetID          ledger.Symbol   `json:"asset_id"`
	RevenueAmount    decimal.Decimal `json:"revenue_amount"`
	RideCount        int32           `json:"ride_count"`
	CO2Saved         int32           `json:"co2_saved"`
	UnderservedRides int32           `json:"underserved_rides"`
	Timestamp        uint64          `json:"timestamp"`
}

// InvestorDistribution is one investor's share of a distribution.
// ImpactMultiplier is advisory and is not applied to TotalAmount.
type InvestorDistribution struct {
	Investor         ledger.Address  `json:"investor"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	EquityBonus      decimal.Decimal `json:"equity_bonus"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	EquityScore      int32           `json:"equity_score"`
	ImpactMultiplier int32           `json:"impact_multiplier"`
}

// RevenueDistribution is an immutable distribution ledger entry
type RevenueDistribution struct {
	ID                 ledger.Symbol          `json:"id"`
	AssetID            ledger.Symbol          `json:"asset_id"`
	TotalRevenue       decimal.Decimal        `json:"total_revenue"`
	DistributionAmount decimal.Decimal        `json:"distribution_amount"`
	EquityBonusPool    decimal.Decimal        `json:"equity_bonus_pool"`
	Timestamp          uint64                 `json:"timestamp"`
	Distributions      []InvestorDistribution `json:"distributions"`
}

// Config is the distributor configuration persisted at initialization
type Config struct {
	Admin           ledger.Address `json:"admin"`
	Oracle          ledger.Address `json:"oracle"`
	LoanPool        ledger.Address `json:"loan_pool"`
	EquityBonusRate int32          `json:"equity_bonus_rate"`
	ImpactBonusRate int32          `json:"impact_bonus_rate"`
}

// ImpactMetrics sums the latest revenue observation of every asset
type ImpactMetrics struct {
	CO2Saved         int64 `json:"co2_saved"`
	Rides            int64 `json:"rides"`
	UnderservedRides int64 `json:"underserved_rides"`
}

// Stats holds the running distributor counters
type Stats struct {
	TotalDistributions      int32           `json:"total_distributions"`
	TotalRevenueDistributed decimal.Decimal `json:"total_revenue_distributed"`
	AssetsWithRevenue       int32           `json:"assets_with_revenue"`
	Impact                  ImpactMetrics   `json:"impact"`
}

// InitializeRequest represents a request to initialize the distributor
type InitializeRequest struct {
	Admin           ledger.Address `json:"admin" binding:"required"`
	Oracle          ledger.Address `json:"oracle" binding:"required"`
	LoanPool        ledger.Address `json:"loan_pool" binding:"required"`
	EquityBonusRate int32          `json:"equity_bonus_rate"`
}

// RecordRevenueRequest is an oracle revenue observation
type RecordRevenueRequest struct {
	AssetID          ledger.Symbol   `json:"asset_id"`
	RevenueAmount    decimal.Decimal `json:"revenue_amount"`
	RideCount        int32           `json:"ride_count"`
	CO2Saved         int32           `json:"co2_saved"`
	UnderservedRides int32           `json:"underserved_rides"`
}

// DistributeRevenueRequest carries the investor snapshot to pay out against.
// The three slices are parallel.
type DistributeRevenueRequest struct {
	AssetID           ledger.Symbol     `json:"asset_id" binding:"required"`
	Investors         []ledger.Address  `json:"investors"`
	InvestmentAmounts []decimal.Decimal `json:"investment_amounts"`
	EquityScores      []int32           `json:"equity_scores"`
}

// UpdateRateRequest sets one of the bonus rates
type UpdateRateRequest struct {
	Rate int32 `json:"rate"`
}
