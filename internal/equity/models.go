package equity

import (
	"github.com/shopspring/decimal"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/workflows"
)

// ApplicationStatus represents the status of a loan application
type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusApproved  ApplicationStatus = "approved"
	StatusRejected  ApplicationStatus = "rejected"
	StatusActive    ApplicationStatus = "active"
	StatusCompleted ApplicationStatus = "completed"
)

// applicationLifecycle allows admin decisions on pending applications only.
var applicationLifecycle = workflows.NewStateMachine(map[ApplicationStatus][]ApplicationStatus{
	StatusPending: {StatusApproved, StatusRejected},
})

// UrbanData is an oracle snapshot of a location. Every factor is in 1..10.
type UrbanData struct {
	Location             ledger.Symbol `json:"location"`
	IncomeLevel          int32         `json:"income_level"`
	PollutionLevel       int32         `json:"pollution_level"`
	PublicTransportScore int32         `json:"public_transport_score"`
	PopulationDensity    int32         `json:"population_density"`
	Timestamp            uint64        `json:"timestamp"`
}

// LoanApplication represents a priced loan request
type LoanApplication struct {
	ID              ledger.Symbol     `json:"id"`
	Borrower        ledger.Address    `json:"borrower"`
	AssetID         ledger.Symbol     `json:"asset_id"`
	RequestedAmount decimal.Decimal   `json:"requested_amount"`
	BaseRate        int32             `json:"base_rate"`
	AdjustedRate    int32             `json:"adjusted_rate"`
	EquityScore     int32             `json:"equity_score"`
	UrbanData       UrbanData         `json:"urban_data"`
	Status          ApplicationStatus `json:"status"`
	CreatedAt       uint64            `json:"created_at"`
}

// Config is the contract configuration persisted at initialization
type Config struct {
	Admin             ledger.Address `json:"admin"`
	Oracle            ledger.Address `json:"oracle"`
	BaseRate          int32          `json:"base_rate"`
	MaxRateAdjustment int32          `json:"max_rate_adjustment"`
	RequireOracleData bool           `json:"require_oracle_data"`
}

// Stats counts applications by status
type Stats struct {
	Pending  int32 `json:"pending"`
	Approved int32 `json:"approved"`
	Rejected int32 `json:"rejected"`
}

// InitializeRequest represents a request to initialize the contract
type InitializeRequest struct {
	Admin             ledger.Address `json:"admin" binding:"required"`
	Oracle            ledger.Address `json:"oracle" binding:"required"`
	BaseRate          int32          `json:"base_rate"`
	RequireOracleData bool           `json:"require_oracle_data"`
}

// SubmitApplicationRequest represents a request to submit a loan application
type SubmitApplicationRequest struct {
	Borrower        ledger.Address  `json:"borrower"`
	AssetID         ledger.Symbol   `json:"asset_id" binding:"required"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	Location        ledger.Symbol   `json:"location" binding:"required"`
}

// ApplicationDecisionRequest identifies the application to approve or reject
type ApplicationDecisionRequest struct {
	ApplicationID ledger.Symbol `json:"application_id"`
}

// UpdateUrbanDataRequest represents an oracle urban data update
type UpdateUrbanDataRequest struct {
	Location             ledger.Symbol `json:"location"`
	IncomeLevel          int32         `json:"income_level"`
	PollutionLevel       int32         `json:"pollution_level"`
	PublicTransportScore int32         `json:"public_transport_score"`
	PopulationDensity    int32         `json:"population_density"`
}
