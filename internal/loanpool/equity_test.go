package loanpool

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetEquityScore(t *testing.T) {
	plain := sha256.Sum256([]byte("uptown"))
	assert.Equal(t, int32(plain[0])%101, AssetEquityScore("uptown"))

	tagged := sha256.Sum256([]byte("east_underserved"))
	assert.Equal(t, int32(tagged[0])%101+20, AssetEquityScore("east_underserved"))
}

func TestInvestorBonus(t *testing.T) {
	assert.Equal(t, int32(0), InvestorBonus("GLONGINVESTOR01", "uptown"))
	assert.Equal(t, int32(15), InvestorBonus("GLONGINVESTOR01", "downtown_low_income"))
	assert.Equal(t, int32(10), InvestorBonus("GSHORT", "uptown"))
	assert.Equal(t, int32(25), InvestorBonus("GSHORT", "north_underserved"))
}
