package treasury

import (
	"maps"
	"slices"
)

// ReasonCode explains a decision of the prescription engine or the performer.
type ReasonCode string

// Prescription reasons.
const (
	ReasonFixedBuffers       ReasonCode = "fixed_buffers"
	ReasonOutflowShock       ReasonCode = "outflow_shock"
	ReasonConservativeInflow ReasonCode = "conservative_inflow"
	ReasonWhitelistOK        ReasonCode = "wl_ok"
	ReasonCapped             ReasonCode = "capped"
	ReasonMakerChecker       ReasonCode = "maker_checker"
	ReasonSameDay            ReasonCode = "same_day"
	ReasonDeferredCutoff     ReasonCode = "deferred_cutoff"
	ReasonNoSurplus          ReasonCode = "no_surplus"
	ReasonShortfall          ReasonCode = "shortfall"
	ReasonNoInstrument       ReasonCode = "no_instrument"
)

// Execution reasons.
const (
	ReasonFilledSimulated  ReasonCode = "filled_simulated"
	ReasonApprovalRequired ReasonCode = "approval_required"
	ReasonRandomReject     ReasonCode = "random_reject"
	ReasonTradeDatePast    ReasonCode = "trade_date_past"
)

var reasonDescriptions = map[ReasonCode]string{
	ReasonFixedBuffers:       "applied operating, payroll, tax and vendor tier buffers",
	ReasonOutflowShock:       "applied outflow shock multiplier to horizon outflows",
	ReasonConservativeInflow: "discounted uncertain flows before settlement",
	ReasonWhitelistOK:        "instrument and issuer within whitelist and caps",
	ReasonCapped:             "amount capped by the instrument or the order limit",
	ReasonMakerChecker:       "amount at or above the approval threshold",
	ReasonSameDay:            "placed before today's market cutoff",
	ReasonDeferredCutoff:     "past the market cutoff or not a business day, dated to the next business day",
	ReasonNoSurplus:          "deployable is zero",
	ReasonShortfall:          "deployable is negative, cash shortfall",
	ReasonNoInstrument:       "no whitelisted instrument",
	ReasonFilledSimulated:    "filled by the simulated execution",
	ReasonApprovalRequired:   "rejected, approval required and not given",
	ReasonRandomReject:       "rejected by the simulated market",
	ReasonTradeDatePast:      "rejected, trade date already past",
}

// Description returns the human readable meaning of a reason code.
func (r ReasonCode) Description() string {
	if d, ok := reasonDescriptions[r]; ok {
		return d
	}
	return string(r)
}

// ReasonCodes returns every known reason code, sorted.
func ReasonCodes() []ReasonCode {
	codes := slices.Collect(maps.Keys(reasonDescriptions))
	slices.Sort(codes)
	return codes
}
