package treasury

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/treasury/date"
	"github.com/shopspring/decimal"
)

// DemoDate is the fixed as-of date used for replay runs.
var DemoDate = date.New(2025, 8, 30)

// Horizon bounds accepted by HorizonFlows.
const (
	MinHorizonDays = 1
	MaxHorizonDays = 365
)

// ErrInvalidHorizon is returned for a horizon or a provision window out of range.
var ErrInvalidHorizon = errors.New("invalid horizon")

// Flow is one scored record of a forecast.
type Flow struct {
	Ref          string          `json:"ref"`
	Counterparty string          `json:"counterparty,omitempty"`
	VendorTier   VendorTier      `json:"vendor_tier,omitempty"`
	DueDate      date.Date       `json:"due_date"`
	DaysToDue    int             `json:"days_to_due"`
	Tier         Tier            `json:"tier"`
	Probability  decimal.Decimal `json:"probability"`
	Amount       Money           `json:"amount"`
	Expected     Money           `json:"expected_amount"`
}

// HorizonForecast is the probability-weighted forecast of one run. It is
// immutable: accessors return copies.
type HorizonForecast struct {
	asOf          date.Date
	horizonDays   int
	provisionDays int

	inflows  []Flow
	outflows []Flow

	expectedInflow  Money
	expectedOutflow Money

	openReceivables     Money // face value of the inflows.
	openPayables        Money // face value of the outflows due within the horizon, overdue included.
	provisionedPayables Money // face value of the outflows beyond the horizon, within the provision window.

	beyondHorizon   int // open receivables scored but out of the horizon.
	beyondProvision int // open payables not forecast at all.

	defects []Defect
}

func (f *HorizonForecast) AsOf() date.Date               { return f.asOf }
func (f *HorizonForecast) HorizonDays() int              { return f.horizonDays }
func (f *HorizonForecast) ProvisionDays() int            { return f.provisionDays }
func (f *HorizonForecast) Inflows() []Flow               { return slices.Clone(f.inflows) }
func (f *HorizonForecast) Outflows() []Flow              { return slices.Clone(f.outflows) }
func (f *HorizonForecast) TotalExpectedInflow() Money    { return f.expectedInflow }
func (f *HorizonForecast) TotalExpectedOutflow() Money   { return f.expectedOutflow }
func (f *HorizonForecast) OpenReceivables() Money        { return f.openReceivables }
func (f *HorizonForecast) OpenPayables() Money           { return f.openPayables }
func (f *HorizonForecast) ProvisionedPayables() Money    { return f.provisionedPayables }
func (f *HorizonForecast) ReceivablesBeyondHorizon() int { return f.beyondHorizon }
func (f *HorizonForecast) PayablesBeyondProvision() int  { return f.beyondProvision }
func (f *HorizonForecast) Defects() []Defect             { return slices.Clone(f.defects) }

// NetExpectedFlow is the expected inflow minus the expected outflow.
func (f *HorizonForecast) NetExpectedFlow() Money {
	return f.expectedInflow.Sub(f.expectedOutflow)
}

// vendorsDue returns the distinct vendors per tier among the outflows due
// within the horizon, overdue included.
func (f *HorizonForecast) vendorsDue() map[VendorTier]int {
	seen := make(map[VendorTier]map[string]bool)
	for _, fl := range f.outflows {
		if fl.Tier != Overdue && fl.Tier != WithinHorizon {
			continue
		}
		tier := fl.VendorTier
		if tier == "" {
			tier = Regular
		}
		if seen[tier] == nil {
			seen[tier] = make(map[string]bool)
		}
		seen[tier][fl.Counterparty] = true
	}
	counts := make(map[VendorTier]int, len(seen))
	for tier, vendors := range seen {
		counts[tier] = len(vendors)
	}
	return counts
}

func (f *HorizonForecast) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("as_of_date", f.asOf)
	w.Append("horizon_days", f.horizonDays)
	w.Append("provision_days", f.provisionDays)
	w.Append("inflows", nonNil(f.inflows))
	w.Append("outflows", nonNil(f.outflows))
	w.Append("total_expected_inflow", f.expectedInflow)
	w.Append("total_expected_outflow", f.expectedOutflow)
	w.Append("open_receivables", f.openReceivables)
	w.Append("open_payables", f.openPayables)
	w.Append("provisioned_payables", f.provisionedPayables)
	w.Append("receivables_beyond_horizon", f.beyondHorizon)
	w.Append("payables_beyond_provision", f.beyondProvision)
	w.Optional("defects", f.defects)
	return w.MarshalJSON()
}

// nonNil makes an empty sequence marshal as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// HorizonFlows forecasts the cash flows due within horizonDays of asOf.
//
// Paid records are ignored. Open records with a missing due date or a
// negative amount are excluded and reported as defects. Receivables are
// included when due within the horizon or overdue, their expected amount is
// floored. Payables are included up to provisionDays, their expected amount
// is ceiled, and bills beyond the provision window are left out entirely.
//
// The only error conditions are invalid arguments.
func HorizonFlows(asOf date.Date, horizonDays int, receivables []Receivable, payables []Payable, model ProbabilityModel, provisionDays int) (*HorizonForecast, error) {
	if horizonDays < MinHorizonDays || horizonDays > MaxHorizonDays {
		return nil, fmt.Errorf("%w: %d days, want %d to %d", ErrInvalidHorizon, horizonDays, MinHorizonDays, MaxHorizonDays)
	}
	if provisionDays < 0 {
		return nil, fmt.Errorf("%w: negative provision window %d", ErrInvalidHorizon, provisionDays)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	f := &HorizonForecast{asOf: asOf, horizonDays: horizonDays, provisionDays: provisionDays}

	for _, r := range receivables {
		if r.Status == Paid {
			continue
		}
		if d, ok := recordDefect(SourceAR, r.ID, r.Status, r.DueDate, r.Amount); !ok {
			f.defects = append(f.defects, d)
			continue
		}
		days := r.DueDate.Sub(asOf)
		tier := model.receivableTier(days)
		if tier != Overdue && days > horizonDays {
			f.beyondHorizon++
			continue
		}
		p := model.Collection[tier]
		f.inflows = append(f.inflows, Flow{
			Ref:          r.ID,
			Counterparty: r.Customer,
			DueDate:      r.DueDate,
			DaysToDue:    days,
			Tier:         tier,
			Probability:  p,
			Amount:       r.Amount,
			Expected:     r.Amount.MulFloor(p),
		})
	}

	for _, b := range payables {
		if b.Status == Paid {
			continue
		}
		if d, ok := recordDefect(SourceAP, b.ID, b.Status, b.DueDate, b.Amount); !ok {
			f.defects = append(f.defects, d)
			continue
		}
		days := b.DueDate.Sub(asOf)
		tier, ok := payableTier(days, horizonDays, provisionDays)
		if !ok {
			f.beyondProvision++
			continue
		}
		p := model.Payment[tier]
		f.outflows = append(f.outflows, Flow{
			Ref:          b.ID,
			Counterparty: b.Vendor,
			VendorTier:   b.VendorTier,
			DueDate:      b.DueDate,
			DaysToDue:    days,
			Tier:         tier,
			Probability:  p,
			Amount:       b.Amount,
			Expected:     b.Amount.MulCeil(p),
		})
	}

	byDueDate := func(a, b Flow) int {
		return cmp.Or(a.DueDate.Sub(b.DueDate), cmp.Compare(a.Ref, b.Ref))
	}
	slices.SortStableFunc(f.inflows, byDueDate)
	slices.SortStableFunc(f.outflows, byDueDate)
	slices.SortStableFunc(f.defects, func(a, b Defect) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.RecordID, b.RecordID))
	})

	for _, fl := range f.inflows {
		f.expectedInflow = f.expectedInflow.Add(fl.Expected)
		f.openReceivables = f.openReceivables.Add(fl.Amount)
	}
	for _, fl := range f.outflows {
		f.expectedOutflow = f.expectedOutflow.Add(fl.Expected)
		if fl.Tier == BeyondHorizonWithinProvision {
			f.provisionedPayables = f.provisionedPayables.Add(fl.Amount)
		} else {
			f.openPayables = f.openPayables.Add(fl.Amount)
		}
	}
	return f, nil
}

// recordDefect checks the fields the predictor relies on.
func recordDefect(source, id string, status RecordStatus, due date.Date, amount Money) (Defect, bool) {
	switch {
	case status != Open:
		return Defect{Source: source, RecordID: id, Field: "status", Reason: fmt.Sprintf("invalid status %q", status)}, false
	case due.IsZero():
		return Defect{Source: source, RecordID: id, Field: "due_date", Reason: "missing or unparseable due date"}, false
	case amount.IsNegative():
		return Defect{Source: source, RecordID: id, Field: "amount", Reason: fmt.Sprintf("negative amount %s", amount)}, false
	}
	return Defect{}, true
}
