package loanpool

import "mobility-finance/ledger-backend/internal/ledger"

const (
	ErrAssetExists      ledger.Code = "ASSET_EXISTS"
	ErrAssetNotFound    ledger.Code = "ASSET_NOT_FOUND"
	ErrInvalidAmount    ledger.Code = "INVALID_AMOUNT"
	ErrAssetNotFunding  ledger.Code = "ASSET_NOT_FUNDING"
	ErrAssetNotFunded   ledger.Code = "ASSET_NOT_FUNDED"
	ErrAssetNotDeployed ledger.Code = "ASSET_NOT_DEPLOYED"
)
