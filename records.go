package treasury

import (
	"fmt"

	"github.com/etnz/treasury/date"
)

// RecordStatus is the settlement status of an invoice or a bill.
type RecordStatus string

const (
	Open RecordStatus = "open"
	Paid RecordStatus = "paid"
)

// ParseRecordStatus parses "open" or "paid".
func ParseRecordStatus(s string) (RecordStatus, error) {
	switch st := RecordStatus(s); st {
	case Open, Paid:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q, want %q or %q", s, Open, Paid)
}

// VendorTier classifies vendors for the safety buffers.
type VendorTier string

const (
	Critical VendorTier = "critical"
	Regular  VendorTier = "regular"
)

// ParseVendorTier parses "critical" or "regular".
func ParseVendorTier(s string) (VendorTier, error) {
	switch t := VendorTier(s); t {
	case Critical, Regular:
		return t, nil
	}
	return "", fmt.Errorf("invalid vendor tier %q, want %q or %q", s, Critical, Regular)
}

// Receivable is an AR invoice, money owed by a customer.
type Receivable struct {
	ID        string
	Customer  string
	Amount    Money
	IssueDate date.Date
	DueDate   date.Date // zero when missing or unparseable.
	PaidDate  date.Date
	Status    RecordStatus
}

// Payable is an AP bill, money owed to a vendor.
type Payable struct {
	ID         string
	Vendor     string
	VendorTier VendorTier
	Amount     Money
	IssueDate  date.Date
	DueDate    date.Date // zero when missing or unparseable.
	PaidDate   date.Date
	Status     RecordStatus
}

// Defect source
const (
	SourceAR       = "ar"
	SourceAP       = "ap"
	SourceBank     = "bank"
	SourceHoldings = "holdings"
)

// Defect reports one input record that has been excluded from a computation.
// Defects are values: they never stop a run.
type Defect struct {
	Source   string `json:"source"`
	RecordID string `json:"record_id,omitempty"`
	Line     int    `json:"line,omitempty"`
	Field    string `json:"field,omitempty"`
	Reason   string `json:"reason"`
}

func (d Defect) String() string {
	s := d.Source
	if d.Line > 0 {
		s = fmt.Sprintf("%s:%d", s, d.Line)
	}
	if d.RecordID != "" {
		s += " " + d.RecordID
	}
	if d.Field != "" {
		return fmt.Sprintf("%s: %s: %s", s, d.Field, d.Reason)
	}
	return fmt.Sprintf("%s: %s", s, d.Reason)
}
