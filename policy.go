package treasury

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/etnz/treasury/date"
	"github.com/shopspring/decimal"
)

// Instrument is one whitelisted investment, in waterfall order.
type Instrument struct {
	Name         string `json:"instrument"`
	Issuer       string `json:"issuer"`
	MaxAmount    Money  `json:"max_amount"` // zero is uncapped.
	MaxTenorDays int    `json:"max_tenor_days,omitempty"`
	RateBps      int    `json:"rate_bps,omitempty"`
}

// PolicyConfig is the treasury policy. It is loaded once and passed by value
// to every computation of a run.
type PolicyConfig struct {
	Currency string

	MinOperatingCash Money
	PayrollBuffer    Money
	TaxBuffer        Money

	// VendorTierBuffers is kept per distinct vendor due within the horizon.
	VendorTierBuffers map[VendorTier]Money

	OutflowShockMultiplier decimal.Decimal
	RecognitionRatio       decimal.Decimal
	APProvisionDays        int

	ApprovalThreshold Money // zero disables maker-checker.
	MaxOrderAmount    Money // zero is uncapped.

	Whitelist []Instrument
}

// MinimumCashBuffer is the policy floor: operating cash, payroll and tax buffers.
func (p PolicyConfig) MinimumCashBuffer() Money {
	return p.MinOperatingCash.Add(p.PayrollBuffer).Add(p.TaxBuffer)
}

// Instrument looks up a whitelisted instrument by name.
func (p PolicyConfig) Instrument(name string) (Instrument, bool) {
	i := slices.IndexFunc(p.Whitelist, func(in Instrument) bool { return in.Name == name })
	if i < 0 {
		return Instrument{}, false
	}
	return p.Whitelist[i], true
}

// Validate reports inconsistent policy values.
func (p PolicyConfig) Validate() error {
	var errs []error
	one := decimal.NewFromInt(1)
	if p.RecognitionRatio.IsNegative() || p.RecognitionRatio.GreaterThan(one) {
		errs = append(errs, fmt.Errorf("recognition ratio %s is not in [0, 1]", p.RecognitionRatio))
	}
	if p.OutflowShockMultiplier.IsNegative() {
		errs = append(errs, fmt.Errorf("outflow shock multiplier %s is negative", p.OutflowShockMultiplier))
	}
	if p.APProvisionDays < 0 {
		errs = append(errs, fmt.Errorf("ap provision days %d is negative", p.APProvisionDays))
	}
	for name, m := range map[string]Money{
		"min operating cash": p.MinOperatingCash,
		"payroll buffer":     p.PayrollBuffer,
		"tax buffer":         p.TaxBuffer,
		"approval threshold": p.ApprovalThreshold,
		"max order amount":   p.MaxOrderAmount,
	} {
		if m.IsNegative() {
			errs = append(errs, fmt.Errorf("%s %s is negative", name, m))
		}
	}
	for _, in := range p.Whitelist {
		if in.Name == "" || in.Issuer == "" {
			errs = append(errs, fmt.Errorf("whitelist entry %q/%q needs an instrument and an issuer", in.Name, in.Issuer))
		}
	}
	return errors.Join(errs...)
}

// CutoffCalendar is the market calendar used to date sweep orders.
type CutoffCalendar struct {
	Location *time.Location // nil is UTC.

	// CutoffHour and CutoffMinute are the daily market cutoff, wall clock in Location.
	CutoffHour   int
	CutoffMinute int

	Holidays []date.Date
	Weekend  []time.Weekday
}

func (c CutoffCalendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Validate reports calendars that cannot produce a business day.
func (c CutoffCalendar) Validate() error {
	if c.CutoffHour < 0 || c.CutoffHour > 23 || c.CutoffMinute < 0 || c.CutoffMinute > 59 {
		return fmt.Errorf("invalid cutoff %02d:%02d", c.CutoffHour, c.CutoffMinute)
	}
	open := 7
	for _, wd := range []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday} {
		if slices.Contains(c.Weekend, wd) {
			open--
		}
	}
	if open == 0 {
		return errors.New("calendar weekend covers the whole week")
	}
	return nil
}

// IsBusinessDay reports whether orders can trade on day.
func (c CutoffCalendar) IsBusinessDay(day date.Date) bool {
	return !slices.Contains(c.Weekend, day.Weekday()) && !slices.Contains(c.Holidays, day)
}

// NextBusinessDay returns the first business day strictly after day.
func (c CutoffCalendar) NextBusinessDay(day date.Date) date.Date {
	next := day.Add(1)
	for !c.IsBusinessDay(next) {
		next = next.Add(1)
	}
	return next
}

// CutoffOn returns the cutoff instant of day.
func (c CutoffCalendar) CutoffOn(day date.Date) time.Time {
	return day.At(c.CutoffHour, c.CutoffMinute, c.location())
}

// CutoffWindow is the trading window an order is dated to.
type CutoffWindow struct {
	TradeDate date.Date `json:"trade_date"`
	Cutoff    time.Time `json:"cutoff"`
	Deferred  bool      `json:"deferred"`
}

// Window returns the cutoff window for an order placed at the instant at.
// Orders placed on a non business day, or at or after the cutoff, are
// deferred to the next business day.
func (c CutoffCalendar) Window(at time.Time) CutoffWindow {
	local := at.In(c.location())
	day := date.Of(local)
	if c.IsBusinessDay(day) && local.Before(c.CutoffOn(day)) {
		return CutoffWindow{TradeDate: day, Cutoff: c.CutoffOn(day)}
	}
	next := c.NextBusinessDay(day)
	return CutoffWindow{TradeDate: next, Cutoff: c.CutoffOn(next), Deferred: true}
}
