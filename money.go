package treasury

import (
	"encoding/json"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is a monetary amount held as an integer number of minor currency
// units (paise for INR). No floating point is ever involved: scaling by a
// probability or a ratio goes through decimal and is rounded explicitly.
type Money struct {
	minor int64
	cur   string
}

// Minor returns an amount of minor units in the given currency.
func Minor(units int64, currency string) Money { return Money{minor: units, cur: currency} }

// FromMajor converts a major unit amount, truncating toward zero below the
// currency fraction.
func FromMajor(major decimal.Decimal, currency string) Money {
	return Money{minor: major.Shift(fraction(currency)).IntPart(), cur: currency}
}

// ParseMajor parses a major unit amount like "1599081.36".
func ParseMajor(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromMajor(d, currency), nil
}

// fraction returns the number of minor digits of a currency, 2 when unknown.
func fraction(code string) int32 {
	if c := money.GetCurrency(code); c != nil {
		return int32(c.Fraction)
	}
	return 2
}

func (m Money) MinorUnits() int64 { return m.minor }
func (m Money) Currency() string  { return m.cur }

// Major returns the amount in major units, exact.
func (m Money) Major() decimal.Decimal { return decimal.New(m.minor, -fraction(m.cur)) }

func (m Money) IsZero() bool                    { return m.minor == 0 }
func (m Money) IsPositive() bool                { return m.minor > 0 }
func (m Money) IsNegative() bool                { return m.minor < 0 }
func (m Money) Equal(n Money) bool              { return m.minor == n.minor && m.cur == n.cur }
func (m Money) LessThan(n Money) bool           { return compare(m, n) < 0 }
func (m Money) GreaterThan(n Money) bool        { return compare(m, n) > 0 }
func (m Money) GreaterThanOrEqual(n Money) bool { return compare(m, n) >= 0 }
func (m Money) Neg() Money                      { return Money{minor: -m.minor, cur: m.cur} }

// binary operators.
func (m Money) Add(n Money) Money { return Money{minor: m.minor + n.minor, cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{minor: m.minor - n.minor, cur: cur(m, n)} }

// Min returns the smaller of m and n.
func (m Money) Min(n Money) Money {
	if compare(n, m) < 0 {
		return Money{minor: n.minor, cur: cur(m, n)}
	}
	return Money{minor: m.minor, cur: cur(m, n)}
}

// MulFloor scales m by r and rounds down to the minor unit.
func (m Money) MulFloor(r decimal.Decimal) Money {
	return Money{minor: decimal.NewFromInt(m.minor).Mul(r).Floor().IntPart(), cur: m.cur}
}

// MulCeil scales m by r and rounds up to the minor unit.
func (m Money) MulCeil(r decimal.Decimal) Money {
	return Money{minor: decimal.NewFromInt(m.minor).Mul(r).Ceil().IntPart(), cur: m.cur}
}

// Times multiplies by an integer count.
func (m Money) Times(n int) Money { return Money{minor: m.minor * int64(n), cur: m.cur} }

func compare(a, b Money) int {
	cur(a, b)
	switch {
	case a.minor < b.minor:
		return -1
	case a.minor > b.minor:
		return 1
	}
	return 0
}

// makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + "!=" + b.cur)
	}
	return a.cur
}

// String formats the amount with the currency symbol and separators.
func (m Money) String() string {
	if m.cur == "" {
		return m.Major().StringFixed(2)
	}
	return money.New(m.minor, m.cur).Display()
}

// Millions formats the amount in millions of major units with one decimal, "INR1.6M".
func (m Money) Millions() string {
	return fmt.Sprintf("%s%sM", m.cur, m.Major().Shift(-6).StringFixed(1))
}

// MarshalJSON writes the amount in major units, the only place where major
// units leave the package.
func (m Money) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("currency", m.cur)
	w.Append("amount", json.Number(m.Major().StringFixed(fraction(m.cur))))
	return w.MarshalJSON()
}

// UnmarshalJSON reads back what MarshalJSON wrote.
func (m *Money) UnmarshalJSON(b []byte) error {
	var j struct {
		Currency string          `json:"currency"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*m = FromMajor(j.Amount, j.Currency)
	return nil
}
