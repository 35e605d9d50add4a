package governance

import (
	"fmt"

	"mobility-finance/ledger-backend/internal/ledger"
)

const (
	keyConfig    = "config"
	keyStats     = "stats"
	prefixActive = "active/"
)

func proposalKey(id ledger.Symbol) string {
	return "proposal/" + string(id)
}

func activeKey(id ledger.Symbol) string {
	return prefixActive + string(id)
}

func votePrefix(proposalID ledger.Symbol) string {
	return "vote/" + string(proposalID) + "/"
}

// voteKey zero-pads seq so key order matches ballot order.
func voteKey(proposalID ledger.Symbol, seq int) string {
	return fmt.Sprintf("%s%010d", votePrefix(proposalID), seq)
}

func ballotKey(proposalID ledger.Symbol, voter ledger.Address) string {
	return "ballot/" + string(proposalID) + "/" + string(voter)
}

func voterKey(addr ledger.Address) string {
	return "voter/" + string(addr)
}
