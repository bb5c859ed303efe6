package holdings

import (
	"fmt"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
)

// Status tags the outcome of a ledger command.
type Status string

const (
	Success  Status = "success"
	Rejected Status = "rejected"
)

// Action tags what a ledger command did to one row.
type Action string

const (
	Created  Action = "created"
	Updated  Action = "updated"
	Redeemed Action = "redeemed"
	Posted   Action = "posted"
	Existing Action = "existing"
	Skipped  Action = "skipped"
	Cleared  Action = "cleared"
	None     Action = "none"
)

// Rejection reasons.
const (
	InvalidAmount     = "invalid_amount"
	InvalidAllocation = "invalid_allocation"
	InsufficientFunds = "insufficient_funds"
	UnknownStrategy   = "unknown_strategy"
)

// Outcome is embedded in every command result. Expected conditions, like
// insufficient funds, are outcomes and never errors.
type Outcome struct {
	Status  Status `json:"status"`
	Action  Action `json:"action"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func succeeded(a Action) Outcome { return Outcome{Status: Success, Action: a} }

func rejected(reason, format string, args ...any) Outcome {
	return Outcome{Status: Rejected, Action: None, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// OK reports whether the command has been applied.
func (o Outcome) OK() bool { return o.Status == Success }

// Holding is the corpus held in one instrument of one issuer.
type Holding struct {
	Instrument    string         `json:"instrument_name"`
	Issuer        string         `json:"issuer"`
	Principal     treasury.Money `json:"principal"`
	RateBps       int            `json:"annual_rate_bps"`
	BasisDays     int            `json:"accrual_basis_days"`
	DailyInterest treasury.Money `json:"daily_interest"`
	Revision      int64          `json:"revision"`
}

// Allocation is a request to invest in a holding.
type Allocation struct {
	Instrument string         `validate:"required"`
	Issuer     string         `validate:"required"`
	Amount     treasury.Money `validate:"-"`
	RateBps    int            `validate:"gte=0,lte=100000"`
	BasisDays  int            `validate:"gte=0,lte=366"` // zero is DefaultBasisDays.
}

// DefaultBasisDays is the accrual basis of holdings created without one.
const DefaultBasisDays = 365

type AllocationResult struct {
	Outcome
	Instrument string         `json:"instrument_name,omitempty"`
	Issuer     string         `json:"issuer,omitempty"`
	Allocated  treasury.Money `json:"allocated"`
	Principal  treasury.Money `json:"principal"` // after the allocation.
}

// Strategy selects the holdings a redemption draws from.
type Strategy string

const (
	MostRecentFirst Strategy = "most_recent_first"
	OldestFirst     Strategy = "oldest_first"
	LargestFirst    Strategy = "largest_first"
	ProRata         Strategy = "pro_rata"
)

// Strategies lists the supported redemption strategies.
var Strategies = []Strategy{MostRecentFirst, OldestFirst, LargestFirst, ProRata}

// Redemption is the part of a redemption drawn from one holding.
type Redemption struct {
	Instrument string         `json:"instrument_name"`
	Issuer     string         `json:"issuer"`
	Redeemed   treasury.Money `json:"redeemed"`
	Remaining  treasury.Money `json:"remaining"`
}

type RedemptionResult struct {
	Outcome
	Strategy    Strategy       `json:"strategy"`
	Requested   treasury.Money `json:"requested"`
	Available   treasury.Money `json:"available"`
	Redemptions []Redemption   `json:"redemptions"`
}

// AccrualEntry is the interest of one holding for one day.
type AccrualEntry struct {
	Date       date.Date      `json:"date"`
	Instrument string         `json:"instrument_name"`
	Issuer     string         `json:"issuer"`
	Opening    treasury.Money `json:"opening_balance"`
	RateBps    int            `json:"annual_rate_bps"`
	BasisDays  int            `json:"accrual_basis_days"`
	Interest   treasury.Money `json:"interest"`
	Action     Action         `json:"action,omitempty"`
}

type AccrualResult struct {
	Outcome
	Date     date.Date      `json:"date"`
	Posted   int            `json:"accruals_posted"`
	Existing int            `json:"accruals_existing"`
	Total    treasury.Money `json:"total_interest"`
	Entries  []AccrualEntry `json:"entries"`
}

// SeedMode selects how Seed treats the current holdings.
type SeedMode string

const (
	// Overwrite clears holdings and accruals before seeding.
	Overwrite SeedMode = "overwrite"
	// Update adds seeded amounts to existing holdings.
	Update SeedMode = "update"
)

// SeedRow is one holding of a seed file.
type SeedRow struct {
	Line       int
	Instrument string
	Issuer     string
	Amount     treasury.Money
	RateBps    int
	BasisDays  int
}

type SeedSkip struct {
	Line       int    `json:"line,omitempty"`
	Instrument string `json:"instrument_name"`
	Issuer     string `json:"issuer"`
	Reason     string `json:"reason"`
}

type SeedResult struct {
	Outcome
	Mode     SeedMode     `json:"mode"`
	Inserted int          `json:"rows_inserted"`
	Updated  int          `json:"rows_updated"`
	Skipped  []SeedSkip   `json:"rows_skipped"`
	Cleared  *ClearResult `json:"cleared_data,omitempty"`
}

type ClearResult struct {
	Outcome
	HoldingsDeleted int `json:"holdings_deleted"`
	AccrualsDeleted int `json:"accruals_deleted"`
}

// Totals of the current corpus.
type Totals struct {
	Corpus        treasury.Money `json:"total_corpus"`
	DailyInterest treasury.Money `json:"total_daily_interest"`
	Holdings      int            `json:"holdings_count"`
}

// DailyPoint is the interest accrued on one day over all holdings.
type DailyPoint struct {
	Date        date.Date      `json:"date"`
	Interest    treasury.Money `json:"accrued_interest"`
	Instruments int            `json:"instruments"`
}

// YTD is the interest accrued over a calendar year.
type YTD struct {
	Year        int            `json:"year"`
	Interest    treasury.Money `json:"ytd_accrued_interest"`
	Records     int            `json:"total_accrual_records"`
	Days        int            `json:"accrual_days"`
	Instruments int            `json:"unique_instruments"`
}

// HoldingInterest attributes the interest of a period to one holding.
type HoldingInterest struct {
	Instrument string         `json:"instrument_name"`
	Issuer     string         `json:"issuer"`
	Interest   treasury.Money `json:"interest_earned"`
	AvgOpening treasury.Money `json:"avg_opening_balance"`
	AvgRateBps int64          `json:"avg_rate_bps"` // weighted by opening balance.
	Days       int            `json:"days_count"`
}

// Reconciliation compares the totals of the read aggregations over a range.
type Reconciliation struct {
	Range       date.Range     `json:"-"`
	Series      treasury.Money `json:"series_total"`
	Attribution treasury.Money `json:"attribution_total"`
	Detail      treasury.Money `json:"detail_total"`
	Balanced    bool           `json:"balanced"`
}
