package treasury

import (
	"fmt"

	"github.com/etnz/treasury/date"
	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of a SweepOrder.
type OrderStatus string

const (
	Proposed  OrderStatus = "proposed"
	Submitted OrderStatus = "submitted"
	Filled    OrderStatus = "filled"
	Rejected  OrderStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool { return s == Filled || s == Rejected }

// Direction of the money movement of a sweep.
type Direction string

// Invest moves surplus cash from the bank account to an instrument.
const Invest Direction = "invest"

// SweepOrder is an order proposed by the prescription engine and executed
// by a Performer.
type SweepOrder struct {
	ID            string       `json:"id"`
	Amount        Money        `json:"proposed_amount"`
	Direction     Direction    `json:"direction"`
	Instrument    string       `json:"instrument"`
	Issuer        string       `json:"issuer"`
	MaxTenorDays  int          `json:"max_tenor_days,omitempty"`
	Window        CutoffWindow `json:"cutoff_window"`
	Status        OrderStatus  `json:"status"`
	ReasonCode    ReasonCode   `json:"reason_code"`
	Reasons       []ReasonCode `json:"reasons"`
	NeedsApproval bool         `json:"needs_approval"`
	Attribution   Attribution  `json:"attribution"`
}

// orderNamespace scopes the order ids.
var orderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/etnz/treasury/sweep-order"))

// orderID derives the order id from what defines the order, so that a re-run
// on identical inputs produces the same id.
func orderID(asOf, tradeDate date.Date, amount Money, in Instrument) string {
	key := fmt.Sprintf("%s|%s|%d|%s|%s|%s", asOf, tradeDate, amount.MinorUnits(), amount.Currency(), in.Name, in.Issuer)
	return uuid.NewSHA1(orderNamespace, []byte(key)).String()
}
