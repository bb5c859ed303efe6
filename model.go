package treasury

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is a probability tier of the cash-flow model.
//
// Receivables use the first four tiers, payables use Overdue and the last
// three.
type Tier int

const (
	Overdue Tier = iota
	Within7Days
	Within14Days
	Beyond14Days
	WithinHorizon
	BeyondHorizonWithinProvision
	BeyondProvision
)

var tierNames = [...]string{
	Overdue:                      "overdue",
	Within7Days:                  "within_7_days",
	Within14Days:                 "within_14_days",
	Beyond14Days:                 "beyond_14_days",
	WithinHorizon:                "within_horizon",
	BeyondHorizonWithinProvision: "beyond_horizon_within_provision",
	BeyondProvision:              "beyond_provision",
}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier parses a tier from its configuration key.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(s, name) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown probability tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(text []byte) error {
	v, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Tiers required in each table of a ProbabilityModel.
var (
	ReceivableTiers = []Tier{Overdue, Within7Days, Within14Days, Beyond14Days}
	PayableTiers    = []Tier{Overdue, WithinHorizon, BeyondHorizonWithinProvision}
)

// ErrIncompleteModel is returned when a probability model cannot score every record.
var ErrIncompleteModel = errors.New("incomplete probability model")

// ProbabilityModel holds the collection probabilities for receivables, the
// payment probabilities for payables, and the receivable tier boundaries.
//
// Payables beyond the provision window are never scored, so BeyondProvision
// is not required in Payment.
type ProbabilityModel struct {
	// NearDays and MidDays are the inclusive upper bounds, in days to due,
	// of the Within7Days and Within14Days receivable tiers.
	NearDays int
	MidDays  int

	Collection map[Tier]decimal.Decimal
	Payment    map[Tier]decimal.Decimal
}

// DefaultModel returns the model used by the desk when no model file
// overrides it.
func DefaultModel() ProbabilityModel {
	return ProbabilityModel{
		NearDays: 7,
		MidDays:  14,
		Collection: map[Tier]decimal.Decimal{
			Overdue:      decimal.RequireFromString("0.85"),
			Within7Days:  decimal.RequireFromString("0.70"),
			Within14Days: decimal.RequireFromString("0.50"),
			Beyond14Days: decimal.RequireFromString("0.30"),
		},
		Payment: map[Tier]decimal.Decimal{
			Overdue:                      decimal.NewFromInt(1),
			WithinHorizon:                decimal.NewFromInt(1),
			BeyondHorizonWithinProvision: decimal.RequireFromString("0.90"),
		},
	}
}

// Validate checks that every required tier is present with a probability in
// [0, 1] and that the tier boundaries are ordered.
func (m ProbabilityModel) Validate() error {
	if m.NearDays < 0 || m.MidDays < m.NearDays {
		return fmt.Errorf("%w: tier boundaries near=%d mid=%d must satisfy 0 <= near <= mid", ErrIncompleteModel, m.NearDays, m.MidDays)
	}
	check := func(table string, probs map[Tier]decimal.Decimal, required []Tier) error {
		for _, t := range required {
			p, ok := probs[t]
			if !ok {
				return fmt.Errorf("%w: %s probability missing for tier %q", ErrIncompleteModel, table, t)
			}
			if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(1)) {
				return fmt.Errorf("%w: %s probability %s for tier %q is not in [0, 1]", ErrIncompleteModel, table, p, t)
			}
		}
		return nil
	}
	if err := check("collection", m.Collection, ReceivableTiers); err != nil {
		return err
	}
	return check("payment", m.Payment, PayableTiers)
}

// receivableTier returns the tier of a receivable due in days.
func (m ProbabilityModel) receivableTier(days int) Tier {
	switch {
	case days < 0:
		return Overdue
	case days <= m.NearDays:
		return Within7Days
	case days <= m.MidDays:
		return Within14Days
	}
	return Beyond14Days
}

// payableTier returns the tier of a payable due in days. ok is false for
// bills beyond the provision window, which must not be forecast at all.
func payableTier(days, horizon, provision int) (t Tier, ok bool) {
	switch {
	case days < 0:
		return Overdue, true
	case days <= horizon:
		return WithinHorizon, true
	case days <= provision:
		return BeyondHorizonWithinProvision, true
	}
	return BeyondProvision, false
}
