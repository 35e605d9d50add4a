package loanpool

import (
	"strings"

	"mobility-finance/ledger-backend/internal/ledger"
)

const (
	underservedScoreBonus  = 20
	underservedInvestBonus = 15
	firstTimeInvestBonus   = 10
	maxInvestorBonus       = 25

	// Principals shorter than this are treated as first-time investors.
	firstTimeAddressLen = 10
)

// IsUnderserved reports whether a location is tagged as underserved.
func IsUnderserved(location ledger.Symbol) bool {
	s := string(location)
	return strings.Contains(s, "low_income") || strings.Contains(s, "underserved")
}

// AssetEquityScore derives the frozen score of an asset from its location.
// Underserved locations get +20 and the result may exceed 100.
func AssetEquityScore(location ledger.Symbol) int32 {
	sum := ledger.SHA256([]byte(location))
	score := int32(sum[0]) % 101
	if IsUnderserved(location) {
		score += underservedScoreBonus
	}
	return score
}

// InvestorBonus returns the 0..25 equity bonus for an investment.
func InvestorBonus(investor ledger.Address, location ledger.Symbol) int32 {
	var bonus int32
	if IsUnderserved(location) {
		bonus += underservedInvestBonus
	}
	if len(investor) < firstTimeAddressLen {
		bonus += firstTimeInvestBonus
	}
	if bonus > maxInvestorBonus {
		bonus = maxInvestorBonus
	}
	return bonus
}
