package loanpool

import (
	"fmt"

	"mobility-finance/ledger-backend/internal/ledger"
)

const (
	keyConfig    = "config"
	keyBalance   = "balance"
	prefixAssets = "asset/"
)

func assetKey(id ledger.Symbol) string {
	return prefixAssets + string(id)
}

func investmentPrefix(assetID ledger.Symbol) string {
	return "investment/" + string(assetID) + "/"
}

// investmentKey zero-pads seq so key order matches append order.
func investmentKey(assetID ledger.Symbol, seq int) string {
	return fmt.Sprintf("%s%010d", investmentPrefix(assetID), seq)
}
