package treasury

import (
	"encoding/json"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/etnz/treasury/date"
)

func emptyForecast(t *testing.T, asOf date.Date) *HorizonForecast {
	t.Helper()
	f, err := HorizonFlows(asOf, 7, nil, nil, DefaultModel(), 14)
	if err != nil {
		t.Fatalf("HorizonFlows() error = %v", err)
	}
	return f
}

func TestMustKeep(t *testing.T) {
	asOf := date.New(2025, 9, 2)
	ap := []Payable{
		payable("B1", "V1", Critical, "2025-09-04", 100_000, Open),
		payable("B2", "V1", Critical, "2025-09-01", 50_000, Open), // overdue, same vendor
		payable("B3", "V2", Regular, "2025-09-08", 20_000, Open),
		payable("B4", "V3", Critical, "2025-09-12", 10_000, Open), // beyond horizon, within provision
	}
	f, err := HorizonFlows(asOf, 7, nil, ap, DefaultModel(), 14)
	if err != nil {
		t.Fatalf("HorizonFlows() error = %v", err)
	}
	policy := testPolicy()
	policy.OutflowShockMultiplier = dec("0.5")

	b := MustKeep(policy, f)
	if b.Vendor.CriticalVendors != 1 || b.Vendor.RegularVendors != 1 {
		t.Errorf("vendors = %d critical %d regular, want 1 and 1", b.Vendor.CriticalVendors, b.Vendor.RegularVendors)
	}
	checks := []struct {
		name string
		got  Money
		want Money
	}{
		{"base", b.Base.Subtotal, INR(1_000_000)},
		{"vendor", b.Vendor.Subtotal, INR(60_000)},
		{"shock outflow", b.Shock.ExpectedOutflow, INR(179_000)},
		{"shock", b.Shock.Amount, INR(89_500)},
		{"total", b.Total, INR(1_149_500)},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	policy.RecognitionRatio = dec("0.4")
	// 1600000 − 1149500 − ceil(179000 × 0.6)
	if got, want := Deployable(INR(1_600_000), b.Total, f, policy.RecognitionRatio), INR(343_100); !got.Equal(want) {
		t.Errorf("Deployable() = %v, want %v", got, want)
	}
}

func TestDeployable(t *testing.T) {
	f := emptyForecast(t, date.New(2025, 9, 2))
	testCases := []struct {
		balance  Money
		mustKeep Money
		want     Money
	}{
		{INR(1_600_000), INR(1_000_000), INR(600_000)},
		{INR(1_000_000), INR(1_000_000), INR(0)},
		{INR(900_000), INR(1_000_000), INR(-100_000)}, // shortfall is not clamped
	}
	for _, tc := range testCases {
		if got := Deployable(tc.balance, tc.mustKeep, f, dec("1")); !got.Equal(tc.want) {
			t.Errorf("Deployable(%v, %v) = %v, want %v", tc.balance, tc.mustKeep, got, tc.want)
		}
	}
}

func TestPrescribeSurplus(t *testing.T) {
	asOf := date.New(2025, 9, 2)
	rx := Prescribe(testPolicy(), testCalendar(), INR(1_600_000), emptyForecast(t, asOf), at("2025-09-02", 10, 0))

	if !rx.MustKeep.Equal(INR(1_000_000)) {
		t.Errorf("MustKeep = %v, want %v", rx.MustKeep, INR(1_000_000))
	}
	if !rx.Deployable.Equal(INR(600_000)) {
		t.Errorf("Deployable = %v, want %v", rx.Deployable, INR(600_000))
	}
	o := rx.Proposal.Order
	if o == nil {
		t.Fatalf("no order proposed, reason %v", rx.Proposal.ReasonCode)
	}
	if !o.Amount.Equal(INR(600_000)) {
		t.Errorf("order amount = %v, want %v", o.Amount, INR(600_000))
	}
	if o.Status != Proposed || o.ReasonCode != ReasonSameDay || o.Window.TradeDate != asOf {
		t.Errorf("order = %v %v %v, want proposed same_day %v", o.Status, o.ReasonCode, o.Window.TradeDate, asOf)
	}
	if o.Instrument != "Liquid Fund A" || o.MaxTenorDays != 91 {
		t.Errorf("order instrument = %s/%d, want the first whitelisted", o.Instrument, o.MaxTenorDays)
	}
	if o.NeedsApproval {
		t.Errorf("order below the approval threshold needs approval")
	}
	if !o.Attribution.Deployable.DeployableAmount.Equal(INR(600_000)) || !o.Attribution.SafetyBuffers.Total.Equal(INR(1_000_000)) {
		t.Errorf("order attribution = %+v, want the prescription figures", o.Attribution.Deployable)
	}
	for _, r := range []ReasonCode{ReasonFixedBuffers, ReasonOutflowShock, ReasonConservativeInflow, ReasonWhitelistOK} {
		if !slices.Contains(o.Reasons, r) {
			t.Errorf("order reasons %v miss %v", o.Reasons, r)
		}
	}
}

func TestProposeOrderCutoff(t *testing.T) {
	testCases := []struct {
		name      string
		at        string
		hour, min int
		wantDate  string
		wantCode  ReasonCode
	}{
		{"before cutoff", "2025-09-02", 13, 59, "2025-09-02", ReasonSameDay},
		{"at cutoff", "2025-09-02", 14, 0, "2025-09-03", ReasonDeferredCutoff},
		{"past cutoff", "2025-09-02", 15, 30, "2025-09-03", ReasonDeferredCutoff},
		{"saturday", "2025-08-30", 9, 0, "2025-09-01", ReasonDeferredCutoff},
		{"friday before holiday monday", "2025-09-05", 16, 0, "2025-09-09", ReasonDeferredCutoff},
		{"holiday", "2025-08-15", 9, 0, "2025-08-18", ReasonDeferredCutoff},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := ProposeOrder(INR(600_000), testPolicy(), testCalendar(), at(tc.at, tc.hour, tc.min))
			if p.Order == nil {
				t.Fatalf("no order proposed")
			}
			if got := p.Order.Window.TradeDate.String(); got != tc.wantDate {
				t.Errorf("trade date = %s, want %s", got, tc.wantDate)
			}
			if p.ReasonCode != tc.wantCode || p.Order.ReasonCode != tc.wantCode {
				t.Errorf("reason = %v, want %v", p.ReasonCode, tc.wantCode)
			}
			if !p.Order.Amount.Equal(INR(600_000)) {
				t.Errorf("amount = %v, want unchanged %v", p.Order.Amount, INR(600_000))
			}
		})
	}
}

func TestProposeOrderCutoffInUTC(t *testing.T) {
	// 09:00 UTC is 14:30 in India, past the cutoff.
	instant := date.New(2025, 9, 2).At(9, 0, time.UTC)
	p := ProposeOrder(INR(1), testPolicy(), testCalendar(), instant)
	if p.ReasonCode != ReasonDeferredCutoff {
		t.Errorf("reason = %v, want %v", p.ReasonCode, ReasonDeferredCutoff)
	}
}

func TestProposeOrderNoOrder(t *testing.T) {
	empty := testPolicy()
	empty.Whitelist = nil
	testCases := []struct {
		name    string
		surplus Money
		policy  PolicyConfig
		want    ReasonCode
	}{
		{"zero", INR(0), testPolicy(), ReasonNoSurplus},
		{"shortfall", INR(-100_000), testPolicy(), ReasonShortfall},
		{"no instrument", INR(100_000), empty, ReasonNoInstrument},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := ProposeOrder(tc.surplus, tc.policy, testCalendar(), at("2025-09-02", 10, 0))
			if p.Order != nil {
				t.Errorf("unexpected order %+v", p.Order)
			}
			if p.ReasonCode != tc.want || !slices.Contains(p.Reasons, tc.want) {
				t.Errorf("reason = %v %v, want %v", p.ReasonCode, p.Reasons, tc.want)
			}
		})
	}
}

func TestProposeOrderCaps(t *testing.T) {
	testCases := []struct {
		name       string
		maxAmount  Money
		maxOrder   Money
		threshold  Money
		want       Money
		wantCapped bool
		wantMC     bool
	}{
		{"uncapped", Money{}, Money{}, INR(5_000_000), INR(600_000), false, false},
		{"instrument cap", INR(200_000), Money{}, INR(5_000_000), INR(200_000), true, false},
		{"order cap", INR(200_000), INR(150_000), INR(5_000_000), INR(150_000), true, false},
		{"cap above surplus", INR(1_000_000), Money{}, INR(5_000_000), INR(600_000), false, false},
		{"maker checker", Money{}, Money{}, INR(600_000), INR(600_000), false, true},
		{"maker checker disabled", Money{}, Money{}, Money{}, INR(600_000), false, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			policy := testPolicy()
			policy.Whitelist[0].MaxAmount = tc.maxAmount
			policy.MaxOrderAmount = tc.maxOrder
			policy.ApprovalThreshold = tc.threshold

			p := ProposeOrder(INR(600_000), policy, testCalendar(), at("2025-09-02", 10, 0))
			if p.Order == nil {
				t.Fatalf("no order proposed")
			}
			if !p.Order.Amount.Equal(tc.want) {
				t.Errorf("amount = %v, want %v", p.Order.Amount, tc.want)
			}
			if got := slices.Contains(p.Reasons, ReasonCapped); got != tc.wantCapped {
				t.Errorf("capped = %v, want %v", got, tc.wantCapped)
			}
			if p.Order.NeedsApproval != tc.wantMC || slices.Contains(p.Reasons, ReasonMakerChecker) != tc.wantMC {
				t.Errorf("maker checker = %v, want %v", p.Order.NeedsApproval, tc.wantMC)
			}
		})
	}
}

func TestPrescribeIdempotent(t *testing.T) {
	ar, ap := testRecords()
	f1 := must(HorizonFlows(DemoDate, 14, ar, ap, DefaultModel(), 21))
	f2 := must(HorizonFlows(DemoDate, 14, ar, ap, DefaultModel(), 21))

	rx1 := Prescribe(testPolicy(), testCalendar(), INR(3_000_000), f1, at("2025-09-01", 9, 0))
	rx2 := Prescribe(testPolicy(), testCalendar(), INR(3_000_000), f2, at("2025-09-01", 11, 45))
	if !reflect.DeepEqual(rx1, rx2) {
		t.Errorf("Prescribe() differs between identical runs:\n%+v\n%+v", rx1, rx2)
	}
	if rx1.Proposal.Order == nil {
		t.Fatalf("no order proposed, reason %v", rx1.Proposal.ReasonCode)
	}
	j1, j2 := must(json.Marshal(rx1)), must(json.Marshal(rx2))
	if string(j1) != string(j2) {
		t.Errorf("Prescribe() JSON differs:\n%s\n%s", j1, j2)
	}

	rx3 := Prescribe(testPolicy(), testCalendar(), INR(3_000_001), f1, at("2025-09-01", 9, 0))
	if rx3.Proposal.Order.ID == rx1.Proposal.Order.ID {
		t.Errorf("different amounts share the order id %s", rx1.Proposal.Order.ID)
	}
}
