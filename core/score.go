package core

import (
	"github.com/shopspring/decimal"
)

const ratioPrecision int32 = 4 // 4 decimal places (0.0001 of the goal bound)

// Score sums the value of every selected bid.
func Score(a Allocation, c *Catalog) int64 {
	var total int64
	for i, choice := range a.choices {
		if bid := c.bid(i, choice); bid != nil {
			total += bid.Value
		}
	}
	return total
}

// BoundRatio returns score as a fraction of the goal bound, rounded to
// ratioPrecision places. A zero bound yields zero.
func BoundRatio(score, bound int64) decimal.Decimal {
	if bound <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(score).
		DivRound(decimal.NewFromInt(bound), ratioPrecision)
}
