package equity

import (
	"mobility-finance/ledger-backend/internal/ledger"
)

// DefaultMaxRateAdjustment is the largest equity-driven rate reduction in percent.
const DefaultMaxRateAdjustment int32 = 15

const (
	minFactor = 1
	maxFactor = 10
)

// EquityScore weighs the urban factors into a 0..100 index. Lower income,
// more pollution, weaker transit and higher density all raise the score.
func EquityScore(d UrbanData) int32 {
	raw := (11-d.IncomeLevel)*10 +
		d.PollutionLevel*5 +
		(11-d.PublicTransportScore)*8 +
		d.PopulationDensity*3

	score := raw / 4
	if score > 100 {
		score = 100
	}
	return score
}

// AdjustedRate prices a loan from the base rate, never going below 1%.
func AdjustedRate(baseRate, maxRateAdjustment, equityScore int32, d UrbanData) int32 {
	equityAdjustment := (100 - equityScore) * maxRateAdjustment / 100

	var additional int32
	if d.IncomeLevel <= 3 {
		additional -= 5
	}
	if d.PollutionLevel >= 8 {
		additional -= 3
	}
	if d.PublicTransportScore <= 3 {
		additional -= 4
	}

	rate := baseRate - (equityAdjustment + additional)
	if rate < 1 {
		return 1
	}
	return rate
}

// MockUrbanData derives deterministic factors from the location hash. It
// stands in for the oracle when a location has never been reported.
func MockUrbanData(location ledger.Symbol, ts uint64) UrbanData {
	sum := ledger.SHA256([]byte(location))
	return UrbanData{
		Location:             location,
		IncomeLevel:          int32(sum[0])%10 + 1,
		PollutionLevel:       int32(sum[1])%10 + 1,
		PublicTransportScore: int32(sum[2])%10 + 1,
		PopulationDensity:    int32(sum[3])%10 + 1,
		Timestamp:            ts,
	}
}

func validFactor(v int32) bool {
	return v >= minFactor && v <= maxFactor
}
