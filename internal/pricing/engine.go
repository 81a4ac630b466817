package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// BpsScale is the number of basis points in 100%.
const BpsScale = 10000

var bpsDivisor = decimal.NewFromInt(BpsScale)

// PercentOf returns amount × bps / 10000 rounded half up to the nearest minor unit.
// Negative amounts or rates yield zero; rates above 100% are capped at amount.
// The product is computed at arbitrary precision so large amounts cannot overflow.
func PercentOf(amount Money, bps int) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	if bps >= BpsScale {
		return amount
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(bpsDivisor).
		Round(0).
		IntPart()
}

// Clamp bounds v to the inclusive range [lo, hi].
func Clamp(v, lo, hi Money) Money {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sum adds up the provided amounts.
func Sum(values []Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}

// Allocate splits total across weights proportionally using the largest remainder
// method. Each share is floor(total × weight / Σweights); leftover units go to the
// largest fractional remainders, earlier indices first on ties. The result always
// sums to min(total, Σweights) and no share exceeds its weight.
func Allocate(total Money, weights []Money) []Money {
	shares := make([]Money, len(weights))
	var weightSum Money
	for _, w := range weights {
		if w > 0 {
			weightSum += w
		}
	}
	if total <= 0 || weightSum <= 0 {
		return shares
	}
	if total >= weightSum {
		for i, w := range weights {
			if w > 0 {
				shares[i] = w
			}
		}
		return shares
	}

	// total × w may exceed int64; quotient and remainder both fit below weightSum.
	sum := decimal.NewFromInt(weightSum)
	scaled := decimal.NewFromInt(total)
	remainders := make([]Money, len(weights))
	var allocated Money
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		q, r := scaled.Mul(decimal.NewFromInt(w)).QuoRem(sum, 0)
		shares[i] = q.IntPart()
		remainders[i] = r.IntPart()
		allocated += shares[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for _, idx := range order {
		if allocated >= total {
			break
		}
		if remainders[idx] == 0 {
			continue
		}
		shares[idx]++
		allocated++
	}
	return shares
}

// Format renders an amount of minor units as a fixed two-decimal string.
func Format(m Money) string {
	return decimal.New(m, -2).StringFixed(2)
}

// ParseBps converts a decimal percentage such as "12.5" into basis points.
func ParseBps(percent string) (int, error) {
	d, err := decimal.NewFromString(percent)
	if err != nil {
		return 0, err
	}
	return int(d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()), nil
}

// ParseMoney converts a major-unit decimal string such as "25.00" into minor units.
func ParseMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
