package holdings

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// DailyInterest returns floor(principal × rateBps / (10000 × basisDays)), in
// minor units. The division is exact, so interest is never overstated.
func DailyInterest(principal int64, rateBps, basisDays int) int64 {
	if principal <= 0 || rateBps <= 0 || basisDays <= 0 {
		return 0
	}
	num := decimal.NewFromInt(principal).Mul(decimal.NewFromInt(int64(rateBps)))
	q, _ := num.QuoRem(decimal.NewFromInt(10000*int64(basisDays)), 0)
	return q.IntPart()
}

// lot is a holding as seen by a redemption.
type lot struct {
	id         int64
	instrument string
	issuer     string
	principal  int64
	revision   int64
}

// plan splits amount over lots according to strategy. It returns the amount
// drawn from each lot, in lots order after sorting them by strategy. amount
// must not exceed the sum of the lots.
func plan(lots []lot, amount int64, strategy Strategy) []int64 {
	switch strategy {
	case MostRecentFirst:
		slices.SortStableFunc(lots, func(a, b lot) int {
			return cmp.Or(cmp.Compare(b.revision, a.revision), cmp.Compare(b.id, a.id))
		})
	case OldestFirst:
		slices.SortStableFunc(lots, func(a, b lot) int {
			return cmp.Or(cmp.Compare(a.revision, b.revision), cmp.Compare(a.id, b.id))
		})
	case LargestFirst, ProRata:
		slices.SortStableFunc(lots, func(a, b lot) int {
			return cmp.Or(cmp.Compare(b.principal, a.principal), cmp.Compare(a.id, b.id))
		})
	}

	drawn := make([]int64, len(lots))
	if strategy == ProRata {
		var total int64
		for _, l := range lots {
			total += l.principal
		}
		if total == 0 {
			return drawn
		}
		remaining := amount
		for i, l := range lots {
			share, _ := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(l.principal)).QuoRem(decimal.NewFromInt(total), 0)
			drawn[i] = share.IntPart()
			remaining -= drawn[i]
		}
		// floors leave less than one minor unit per lot, given to the largest.
		for i := 0; remaining > 0 && i < len(lots); i++ {
			if drawn[i] < lots[i].principal {
				drawn[i]++
				remaining--
			}
		}
		return drawn
	}

	remaining := amount
	for i, l := range lots {
		if remaining == 0 {
			break
		}
		drawn[i] = min(l.principal, remaining)
		remaining -= drawn[i]
	}
	return drawn
}
