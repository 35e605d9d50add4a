// Package amount holds integer money arithmetic. Amounts are whole numbers
// bounded to the signed 128-bit range and every division truncates toward
// zero.
package amount

import "github.com/shopspring/decimal"

var (
	// MaxI128 is the largest representable amount.
	MaxI128 = decimal.RequireFromString("170141183460469231731687303715884105727")
	// MinI128 is the smallest representable amount.
	MinI128 = decimal.RequireFromString("-170141183460469231731687303715884105728")

	hundred = decimal.NewFromInt(100)
)

// Valid reports whether d is a whole number inside the signed 128-bit range.
func Valid(d decimal.Decimal) bool {
	return d.IsInteger() && d.Cmp(MinI128) >= 0 && d.Cmp(MaxI128) <= 0
}

// Positive reports whether d is valid and greater than zero.
func Positive(d decimal.Decimal) bool {
	return Valid(d) && d.IsPositive()
}

// Quo divides a by b truncating toward zero. b must not be zero.
func Quo(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}

// MulDiv returns a*mul/div truncated toward zero.
func MulDiv(a, mul, div decimal.Decimal) decimal.Decimal {
	return Quo(a.Mul(mul), div)
}

// Percent returns a*pct/100 truncated toward zero.
func Percent(a decimal.Decimal, pct int64) decimal.Decimal {
	return MulDiv(a, decimal.NewFromInt(pct), hundred)
}

// Sum adds every amount in xs.
func Sum(xs []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, x := range xs {
		total = total.Add(x)
	}
	return total
}
