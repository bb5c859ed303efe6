package treasury

import (
	"time"

	"github.com/etnz/treasury/date"
	"github.com/shopspring/decimal"
)

// Buffers details the amount that must stay in the bank account.
type Buffers struct {
	Total  Money         `json:"total_must_keep"`
	Base   BaseBuffers   `json:"base_buffers"`
	Vendor VendorBuffers `json:"vendor_buffers"`
	Shock  ShockBuffer   `json:"shock_buffer"`
}

type BaseBuffers struct {
	OperatingCash Money `json:"operating_cash"`
	Payroll       Money `json:"payroll_buffer"`
	Tax           Money `json:"tax_buffer"`
	Subtotal      Money `json:"subtotal"`
}

// VendorBuffers counts the distinct vendors due within the horizon.
type VendorBuffers struct {
	CriticalVendors int   `json:"critical_vendors"`
	RegularVendors  int   `json:"regular_vendors"`
	Critical        Money `json:"critical_buffer"`
	Regular         Money `json:"regular_buffer"`
	Subtotal        Money `json:"subtotal"`
}

type ShockBuffer struct {
	Multiplier      decimal.Decimal `json:"multiplier"`
	ExpectedOutflow Money           `json:"expected_outflows"`
	Amount          Money           `json:"buffer_amount"`
}

// MustKeep computes the minimum amount to keep: the policy floor, a buffer
// per distinct vendor due within the horizon, and the outflow shock buffer
// ceil(multiplier × expected outflow).
func MustKeep(policy PolicyConfig, f *HorizonForecast) Buffers {
	zero := Minor(0, policy.Currency)
	var b Buffers

	b.Base = BaseBuffers{
		OperatingCash: policy.MinOperatingCash,
		Payroll:       policy.PayrollBuffer,
		Tax:           policy.TaxBuffer,
		Subtotal:      zero.Add(policy.MinimumCashBuffer()),
	}

	vendors := f.vendorsDue()
	b.Vendor = VendorBuffers{
		CriticalVendors: vendors[Critical],
		RegularVendors:  vendors[Regular],
		Critical:        zero.Add(policy.VendorTierBuffers[Critical].Times(vendors[Critical])),
		Regular:         zero.Add(policy.VendorTierBuffers[Regular].Times(vendors[Regular])),
	}
	b.Vendor.Subtotal = b.Vendor.Critical.Add(b.Vendor.Regular)

	outflow := zero.Add(f.TotalExpectedOutflow())
	b.Shock = ShockBuffer{
		Multiplier:      policy.OutflowShockMultiplier,
		ExpectedOutflow: outflow,
		Amount:          outflow.MulCeil(policy.OutflowShockMultiplier),
	}

	b.Total = b.Base.Subtotal.Add(b.Vendor.Subtotal).Add(b.Shock.Amount)
	return b
}

// UncertainOutflow is the part of the expected outflow not covered by the
// recognition ratio: ceil(expected outflow × (1 − ratio)).
func UncertainOutflow(f *HorizonForecast, recognitionRatio decimal.Decimal) Money {
	return f.TotalExpectedOutflow().MulCeil(decimal.NewFromInt(1).Sub(recognitionRatio))
}

// Deployable returns the surplus balance − mustKeep − uncertain outflow.
// A negative result is a shortfall and is returned as is.
func Deployable(balance, mustKeep Money, f *HorizonForecast, recognitionRatio decimal.Decimal) Money {
	return balance.Sub(mustKeep).Sub(UncertainOutflow(f, recognitionRatio))
}

// Attribution explains which inputs drove the must-keep and the deployable amounts.
type Attribution struct {
	CashFlows     CashFlowAttribution   `json:"cash_flows"`
	SafetyBuffers Buffers               `json:"safety_buffers"`
	Deployable    DeployableAttribution `json:"deployable_calculation"`
}

// CashFlowAttribution compares face values with their probability-weighted
// expectation. Payables face value covers the same bills as the expected
// outflow: due within the horizon and provisioned beyond it.
type CashFlowAttribution struct {
	CurrentBalance       Money `json:"current_balance"`
	OpenReceivables      Money `json:"raw_ar_receivables"`
	OpenPayables         Money `json:"raw_ap_payables"`
	HorizonPayables      Money `json:"horizon_ap_payables"`
	ProvisionedPayables  Money `json:"provisioned_ap_payables"`
	RawNetPosition       Money `json:"raw_net_position"`
	ExpectedInflow       Money `json:"expected_inflows"`
	ExpectedOutflow      Money `json:"expected_outflows"`
	NetExpectedFlow      Money `json:"net_expected_flow"`
	ARProbabilityEffect  Money `json:"ar_probability_effect"`
	APProbabilityEffect  Money `json:"ap_probability_effect"`
	NetProbabilityEffect Money `json:"net_probability_effect"`
}

type DeployableAttribution struct {
	AvailableBalance Money           `json:"available_balance"`
	RecognitionRatio decimal.Decimal `json:"recognition_ratio"`
	UncertainOutflow Money           `json:"uncertain_outflow"`
	LessMustKeep     Money           `json:"less_must_keep"`
	DeployableAmount Money           `json:"deployable_amount"`
}

// NewAttribution builds the attribution of a prescription.
func NewAttribution(policy PolicyConfig, balance Money, f *HorizonForecast, b Buffers) Attribution {
	zero := Minor(0, policy.Currency)
	arEffect := zero.Add(f.OpenReceivables()).Sub(f.TotalExpectedInflow())
	payables := zero.Add(f.OpenPayables()).Add(f.ProvisionedPayables())
	apEffect := payables.Sub(f.TotalExpectedOutflow())
	uncertain := zero.Add(UncertainOutflow(f, policy.RecognitionRatio))
	return Attribution{
		CashFlows: CashFlowAttribution{
			CurrentBalance:       balance,
			OpenReceivables:      zero.Add(f.OpenReceivables()),
			OpenPayables:         payables,
			HorizonPayables:      zero.Add(f.OpenPayables()),
			ProvisionedPayables:  zero.Add(f.ProvisionedPayables()),
			RawNetPosition:       zero.Add(f.OpenReceivables()).Sub(payables),
			ExpectedInflow:       zero.Add(f.TotalExpectedInflow()),
			ExpectedOutflow:      zero.Add(f.TotalExpectedOutflow()),
			NetExpectedFlow:      zero.Add(f.NetExpectedFlow()),
			ARProbabilityEffect:  arEffect,
			APProbabilityEffect:  apEffect,
			NetProbabilityEffect: arEffect.Sub(apEffect),
		},
		SafetyBuffers: b,
		Deployable: DeployableAttribution{
			AvailableBalance: balance,
			RecognitionRatio: policy.RecognitionRatio,
			UncertainOutflow: uncertain,
			LessMustKeep:     b.Total,
			DeployableAmount: balance.Sub(b.Total).Sub(uncertain),
		},
	}
}

// Proposal is the outcome of ProposeOrder: an order, or none with the reason.
type Proposal struct {
	Order      *SweepOrder  `json:"order"`
	ReasonCode ReasonCode   `json:"reason_code"`
	Reasons    []ReasonCode `json:"reasons"`
}

// ProposeOrder sizes a sweep order for surplus against the first whitelisted
// instrument and dates it with the calendar for an order placed at the
// instant at.
//
// There is no order when surplus is zero (no_surplus), negative (shortfall)
// or when the whitelist is empty (no_instrument). The amount is the surplus,
// capped by the instrument MaxAmount and the policy MaxOrderAmount. The
// returned order has no Attribution, see Prescribe.
func ProposeOrder(surplus Money, policy PolicyConfig, cal CutoffCalendar, at time.Time) Proposal {
	reasons := []ReasonCode{ReasonFixedBuffers, ReasonOutflowShock, ReasonConservativeInflow}
	none := func(code ReasonCode) Proposal {
		return Proposal{ReasonCode: code, Reasons: append(reasons, code)}
	}
	switch {
	case surplus.IsZero():
		return none(ReasonNoSurplus)
	case surplus.IsNegative():
		return none(ReasonShortfall)
	case len(policy.Whitelist) == 0:
		return none(ReasonNoInstrument)
	}

	in := policy.Whitelist[0]
	reasons = append(reasons, ReasonWhitelistOK)

	amount := surplus
	capped := false
	for _, limit := range []Money{in.MaxAmount, policy.MaxOrderAmount} {
		if limit.IsPositive() && limit.LessThan(amount) {
			amount, capped = amount.Min(limit), true
		}
	}
	if capped {
		reasons = append(reasons, ReasonCapped)
	}

	needsApproval := policy.ApprovalThreshold.IsPositive() && amount.GreaterThanOrEqual(policy.ApprovalThreshold)
	if needsApproval {
		reasons = append(reasons, ReasonMakerChecker)
	}

	window := cal.Window(at)
	code := ReasonSameDay
	if window.Deferred {
		code = ReasonDeferredCutoff
	}
	reasons = append(reasons, code)

	asOf := date.Of(at.In(cal.location()))
	return Proposal{
		Order: &SweepOrder{
			ID:            orderID(asOf, window.TradeDate, amount, in),
			Amount:        amount,
			Direction:     Invest,
			Instrument:    in.Name,
			Issuer:        in.Issuer,
			MaxTenorDays:  in.MaxTenorDays,
			Window:        window,
			Status:        Proposed,
			ReasonCode:    code,
			Reasons:       reasons,
			NeedsApproval: needsApproval,
		},
		ReasonCode: code,
		Reasons:    reasons,
	}
}

// Prescription is the full decision of the prescription engine for one run.
type Prescription struct {
	AsOf           date.Date   `json:"as_of_date"`
	CurrentBalance Money       `json:"current_balance"`
	Buffers        Buffers     `json:"buffers"`
	MustKeep       Money       `json:"must_keep"`
	Deployable     Money       `json:"deployable"`
	Attribution    Attribution `json:"attribution"`
	Proposal       Proposal    `json:"proposal"`
}

// Prescribe applies the policy to a forecast and proposes at most one order,
// carrying the attribution of the decision.
func Prescribe(policy PolicyConfig, cal CutoffCalendar, balance Money, f *HorizonForecast, at time.Time) Prescription {
	b := MustKeep(policy, f)
	surplus := Deployable(balance, b.Total, f, policy.RecognitionRatio)
	attr := NewAttribution(policy, balance, f, b)

	p := ProposeOrder(surplus, policy, cal, at)
	if p.Order != nil {
		p.Order.Attribution = attr
	}
	return Prescription{
		AsOf:           f.AsOf(),
		CurrentBalance: balance,
		Buffers:        b,
		MustKeep:       b.Total,
		Deployable:     surplus,
		Attribution:    attr,
		Proposal:       p,
	}
}
