package treasury

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/etnz/treasury/date"
)

// Settings is the configuration of a run, loaded once.
type Settings struct {
	Policy      PolicyConfig
	Calendar    CutoffCalendar
	Model       ProbabilityModel
	HorizonDays int
}

// Inputs are the ledger snapshots of a run. Defects holds what the loaders
// could not turn into records.
type Inputs struct {
	Bank        []BankTxn
	Receivables []Receivable
	Payables    []Payable
	Defects     []Defect
}

// Summary is the result of a run.
type Summary struct {
	AsOf           date.Date        `json:"as_of_date"`
	HorizonDays    int              `json:"horizon_days"`
	CurrentBalance Money            `json:"current_balance"`
	Forecast       *HorizonForecast `json:"forecast"`
	Prescription   Prescription     `json:"prescription"`
	Order          *SweepOrder      `json:"order"` // final state, nil when no order.
	Defects        []Defect         `json:"defects"`
}

// Run executes the pipeline once: predict, prescribe and, when performer is
// not nil, perform. The as-of date is the calendar day of at in the calendar
// location.
func Run(ctx context.Context, s Settings, in Inputs, at time.Time, performer *Performer) (*Summary, error) {
	asOf := date.Of(at.In(s.Calendar.location()))
	balance := CurrentBalance(in.Bank, s.Policy.Currency)

	f, err := HorizonFlows(asOf, s.HorizonDays, in.Receivables, in.Payables, s.Model, s.Policy.APProvisionDays)
	if err != nil {
		return nil, fmt.Errorf("cannot forecast cash flows: %w", err)
	}
	rx := Prescribe(s.Policy, s.Calendar, balance, f, at)

	sum := &Summary{
		AsOf:           asOf,
		HorizonDays:    s.HorizonDays,
		CurrentBalance: balance,
		Forecast:       f,
		Prescription:   rx,
		Defects:        nonNil(slices.Concat(in.Defects, f.Defects())),
	}
	if rx.Proposal.Order == nil {
		return sum, nil
	}
	order := *rx.Proposal.Order
	if performer != nil {
		if order, err = performer.Submit(ctx, order, rx); err != nil {
			return nil, fmt.Errorf("cannot perform order %s: %w", order.ID, err)
		}
	}
	sum.Order = &order
	return sum, nil
}
