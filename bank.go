package treasury

import (
	"slices"

	"github.com/etnz/treasury/date"
)

// BankTxn is one line of the bank statement.
type BankTxn struct {
	Date         date.Date
	Description  string
	Counterparty string
	Amount       Money

	// RunningBalance is the statement balance after this line, when the
	// statement carries one.
	RunningBalance    Money
	HasRunningBalance bool
}

// CurrentBalance resolves the bank balance from a statement.
//
// Lines are considered in date order (stable for lines on the same day). If
// the last line carries a running balance it is the balance, otherwise the
// balance is the sum of all amounts.
func CurrentBalance(txns []BankTxn, currency string) Money {
	sorted := slices.Clone(txns)
	slices.SortStableFunc(sorted, func(a, b BankTxn) int { return a.Date.Sub(b.Date) })

	if n := len(sorted); n > 0 && sorted[n-1].HasRunningBalance {
		return Minor(0, currency).Add(sorted[n-1].RunningBalance)
	}
	total := Minor(0, currency)
	for _, t := range sorted {
		total = total.Add(t.Amount)
	}
	return total
}
