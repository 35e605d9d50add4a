package equity

import "mobility-finance/ledger-backend/internal/ledger"

const (
	ErrInvalidAmount       ledger.Code = "INVALID_AMOUNT"
	ErrInvalidInput        ledger.Code = "INVALID_INPUT"
	ErrApplicationNotFound ledger.Code = "APPLICATION_NOT_FOUND"
	ErrApplicationExists   ledger.Code = "APPLICATION_EXISTS"
	ErrInvalidStatus       ledger.Code = "INVALID_STATUS"
	ErrDataNotFound        ledger.Code = "DATA_NOT_FOUND"
)
