package revenue

import (
	"github.com/shopspring/decimal"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/amount"
)

const (
	DefaultImpactBonusRate = 10
	MaxEquityBonusRate     = 50
	MaxImpactBonusRate     = 25

	baseImpactMultiplier = 100
	co2BonusThreshold    = 1000
	co2Bonus             = 10
	// Underserved ratio (percent) above which the impact bonus applies.
	highImpactRatio = 50
)

// Split is the result of running the distribution arithmetic.
type Split struct {
	EquityBonusPool    decimal.Decimal
	DistributionAmount decimal.Decimal
	Investors          []InvestorDistribution
}

// UnderservedRatio returns underserved rides as a whole percent of all rides.
func UnderservedRatio(rev RideRevenue) int64 {
	if rev.RideCount == 0 {
		return 0
	}
	return int64(rev.UnderservedRides) * 100 / int64(rev.RideCount)
}

// EquityBonus returns an investor's share of the bonus pool, topped up by the
// underserved ratio.
func EquityBonus(pool decimal.Decimal, equityScore int32, rev RideRevenue) decimal.Decimal {
	base := amount.Percent(pool, int64(equityScore))
	return base.Add(amount.Percent(base, UnderservedRatio(rev)))
}

// ImpactMultiplier returns the advisory multiplier in percent.
func ImpactMultiplier(rev RideRevenue, impactBonusRate int32) int32 {
	m := int32(baseImpactMultiplier)
	if rev.CO2Saved > co2BonusThreshold {
		m += co2Bonus
	}
	if UnderservedRatio(rev) > highImpactRatio {
		m += impactBonusRate
	}
	return m
}

// Distribute splits rev across investors. Slices are parallel and must have
// equal length.
func Distribute(rev RideRevenue, cfg Config, investors []ledger.Address, amounts []decimal.Decimal, scores []int32) Split {
	pool := amount.Percent(rev.RevenueAmount, int64(cfg.EquityBonusRate))
	distributable := rev.RevenueAmount.Sub(pool)
	totalInvestment := amount.Sum(amounts)
	multiplier := ImpactMultiplier(rev, cfg.ImpactBonusRate)

	shares := make([]InvestorDistribution, 0, len(investors))
	for i, investor := range investors {
		base := decimal.Zero
		if totalInvestment.IsPositive() {
			base = amount.MulDiv(distributable, amounts[i], totalInvestment)
		}
		bonus := EquityBonus(pool, scores[i], rev)
		shares = append(shares, InvestorDistribution{
			Investor:         investor,
			BaseAmount:       base,
			EquityBonus:      bonus,
			TotalAmount:      base.Add(bonus),
			EquityScore:      scores[i],
			ImpactMultiplier: multiplier,
		})
	}

	return Split{
		EquityBonusPool:    pool,
		DistributionAmount: distributable,
		Investors:          shares,
	}
}
