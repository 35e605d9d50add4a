package equity

import "mobility-finance/ledger-backend/internal/ledger"

const (
	keyConfig = "config"
	keyStats  = "stats"
)

func applicationKey(id ledger.Symbol) string {
	return "application/" + string(id)
}

func borrowerPrefix(borrower ledger.Address) string {
	return "borrower/" + string(borrower) + "/"
}

func borrowerKey(borrower ledger.Address, id ledger.Symbol) string {
	return borrowerPrefix(borrower) + string(id)
}

func urbanKey(location ledger.Symbol) string {
	return "urban/" + string(location)
}
