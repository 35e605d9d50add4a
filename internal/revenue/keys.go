package revenue

import "mobility-finance/ledger-backend/internal/ledger"

const (
	keyConfig = "config"
	keyStats  = "stats"
)

func revenueKey(assetID ledger.Symbol) string {
	return "revenue/" + string(assetID)
}

func distributionKey(id ledger.Symbol) string {
	return "distribution/" + string(id)
}

func assetDistributionPrefix(assetID ledger.Symbol) string {
	return "asset_distribution/" + string(assetID) + "/"
}

func assetDistributionKey(assetID, id ledger.Symbol) string {
	return assetDistributionPrefix(assetID) + string(id)
}
