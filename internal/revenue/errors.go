package revenue

import "mobility-finance/ledger-backend/internal/ledger"

const (
	ErrRevenueNotFound      ledger.Code = "REVENUE_NOT_FOUND"
	ErrInvalidInput         ledger.Code = "INVALID_INPUT"
	ErrInvalidRate          ledger.Code = "INVALID_RATE"
	ErrDistributionNotFound ledger.Code = "DISTRIBUTION_NOT_FOUND"
	ErrDistributionExists   ledger.Code = "DISTRIBUTION_EXISTS"
)
