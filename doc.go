// Package treasury implements the decision pipeline of a treasury auto-sweep
// desk. It is local-first and deterministic: given ledger snapshots and an
// explicit as-of date, the same inputs always produce the same decision.
//
// The pipeline runs one way:
//   - Cash-Flow Predictor: HorizonFlows turns open receivables and payables
//     into a probability-weighted HorizonForecast, using an injected
//     ProbabilityModel.
//   - Prescription Engine: MustKeep, Deployable and ProposeOrder apply the
//     PolicyConfig and the CutoffCalendar to the forecast and propose at most
//     one SweepOrder, always with its Attribution.
//   - Order Performer: a Performer moves a proposed order to a terminal state
//     and records one immutable Artifact per order id.
//
// Every amount is a Money, an integer number of minor currency units. Major
// units only appear when a value is marshaled or formatted.
//
// The companion holdings ledger lives in the holdings package.
package treasury
