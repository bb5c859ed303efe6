package treasury

import (
	"time"

	"github.com/etnz/treasury/date"
	"github.com/shopspring/decimal"
)

// INR is a helper for tests to create rupees from a whole amount.
func INR(rupees int64) Money { return Minor(rupees*100, "INR") }

// dec is a helper for tests to create decimals from const.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var ist = time.FixedZone("IST", 5*3600+1800)

// at returns the instant of a wall clock in ist.
func at(day string, hour, min int) time.Time { return date.MustParse(day).At(hour, min, ist) }

func testCalendar() CutoffCalendar {
	return CutoffCalendar{
		Location:   ist,
		CutoffHour: 14,
		Holidays:   []date.Date{date.New(2025, 8, 15), date.New(2025, 9, 8)},
		Weekend:    []time.Weekday{time.Saturday, time.Sunday},
	}
}

func testPolicy() PolicyConfig {
	return PolicyConfig{
		Currency:         "INR",
		MinOperatingCash: INR(500_000),
		PayrollBuffer:    INR(300_000),
		TaxBuffer:        INR(200_000),
		VendorTierBuffers: map[VendorTier]Money{
			Critical: INR(50_000),
			Regular:  INR(10_000),
		},
		OutflowShockMultiplier: dec("1"),
		RecognitionRatio:       dec("1"),
		APProvisionDays:        14,
		ApprovalThreshold:      INR(5_000_000),
		Whitelist: []Instrument{
			{Name: "Liquid Fund A", Issuer: "AMC One", MaxTenorDays: 91, RateBps: 630},
			{Name: "T-Bill 91D", Issuer: "RBI", MaxTenorDays: 91, RateBps: 655},
		},
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
