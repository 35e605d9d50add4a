package loanpool

import (
	"github.com/shopspring/decimal"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/workflows"
)

// AssetStatus represents the lifecycle stage of a mobility asset
type AssetStatus string

const (
	AssetFunding   AssetStatus = "funding"
	AssetFunded    AssetStatus = "funded"
	AssetDeployed  AssetStatus = "deployed"
	AssetCompleted AssetStatus = "completed"
)

var assetLifecycle = workflows.NewStateMachine(map[AssetStatus][]AssetStatus{
	AssetFunding:  {AssetFunded},
	AssetFunded:   {AssetDeployed},
	AssetDeployed: {AssetCompleted},
})

// MobilityAsset is a crowdfunded e-bike, shuttle or scooter fleet
type MobilityAsset struct {
	ID           ledger.Symbol    `json:"id"`
	Name         string           `json:"name"`
	AssetType    ledger.Symbol    `json:"asset_type"`
	TargetAmount decimal.Decimal  `json:"target_amount"`
	FundedAmount decimal.Decimal  `json:"funded_amount"`
	Location     ledger.Symbol    `json:"location"`
	EquityScore  int32            `json:"equity_score"`
	Status       AssetStatus      `json:"status"`
	Investors    []ledger.Address `json:"investors"`
	CreatedAt    uint64           `json:"created_at"`
}

// Investment is an append-only record of one contribution
type Investment struct {
	Investor    ledger.Address  `json:"investor"`
	AssetID     ledger.Symbol   `json:"asset_id"`
	Amount      decimal.Decimal `json:"amount"`
	EquityBonus int32           `json:"equity_bonus"`
	Timestamp   uint64          `json:"timestamp"`
}

// Config is the pool configuration persisted at initialization
type Config struct {
	Admin        ledger.Address `json:"admin"`
	EquityOracle ledger.Address `json:"equity_oracle"`
}

// InitializeRequest represents a request to initialize the pool
type InitializeRequest struct {
	Admin        ledger.Address `json:"admin" binding:"required"`
	EquityOracle ledger.Address `json:"equity_oracle" binding:"required"`
}

// CreateAssetRequest represents a request to list a new asset for funding
type CreateAssetRequest struct {
	AssetID      ledger.Symbol   `json:"asset_id" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	AssetType    ledger.Symbol   `json:"asset_type" binding:"required"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Location     ledger.Symbol   `json:"location" binding:"required"`
}

// InvestRequest represents an investment into an asset
type InvestRequest struct {
	Investor ledger.Address  `json:"investor"`
	AssetID  ledger.Symbol   `json:"asset_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// AssetRequest identifies an asset for a lifecycle transition
type AssetRequest struct {
	AssetID ledger.Symbol `json:"asset_id"`
}
