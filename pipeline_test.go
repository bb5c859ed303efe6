package treasury

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/etnz/treasury/date"
)

func testSettings() Settings {
	return Settings{Policy: testPolicy(), Calendar: testCalendar(), Model: DefaultModel(), HorizonDays: 14}
}

func testInputs() Inputs {
	ar, ap := testRecords()
	return Inputs{
		Bank: []BankTxn{
			{Date: date.New(2025, 8, 1), Amount: INR(2_000_000)},
			{Date: date.New(2025, 8, 20), Amount: INR(1_000_000)},
		},
		Receivables: ar,
		Payables:    ap,
		Defects:     []Defect{{Source: SourceBank, Line: 4, Field: "amount", Reason: "invalid amount"}},
	}
}

func TestRunDeterministic(t *testing.T) {
	ctx := context.Background()
	instant := at("2025-09-01", 10, 0)

	s1, err := Run(ctx, testSettings(), testInputs(), instant, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	s2, err := Run(ctx, testSettings(), testInputs(), instant, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	j1, j2 := must(json.Marshal(s1)), must(json.Marshal(s2))
	if string(j1) != string(j2) {
		t.Errorf("Run() outputs differ:\n%s\n%s", j1, j2)
	}
	if s1.Order == nil || s1.Order.Status != Proposed {
		t.Fatalf("Run() without a performer should leave a proposed order, got %+v", s1.Order)
	}
	if got, want := len(s1.Defects), 3; got != want {
		t.Errorf("Run() defects = %v, want %d", s1.Defects, want)
	}
	if !s1.CurrentBalance.Equal(INR(3_000_000)) {
		t.Errorf("CurrentBalance = %v, want %v", s1.CurrentBalance, INR(3_000_000))
	}
}

func TestRunPerform(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryArtifacts()
	p := &Performer{Decider: RuleDecider{}, Store: store, Clock: fixedClock}

	first, err := Run(ctx, testSettings(), testInputs(), at("2025-09-01", 10, 0), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := Run(ctx, testSettings(), testInputs(), at("2025-09-01", 11, 0), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if first.Order.Status != Filled || second.Order.ID != first.Order.ID || second.Order.Status != Filled {
		t.Errorf("re-run orders = %v %v, %v %v", first.Order.ID, first.Order.Status, second.Order.ID, second.Order.Status)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d artifacts, want 1", store.Len())
	}
}

func TestRunShortfall(t *testing.T) {
	in := testInputs()
	in.Bank = []BankTxn{{Date: date.New(2025, 8, 1), Amount: INR(500_000), RunningBalance: INR(500_000), HasRunningBalance: true}}
	sum, err := Run(context.Background(), testSettings(), in, at("2025-09-01", 10, 0), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Order != nil || sum.Prescription.Proposal.ReasonCode != ReasonShortfall {
		t.Errorf("Run() = %+v %v, want no order and a shortfall", sum.Order, sum.Prescription.Proposal.ReasonCode)
	}
	if !sum.Prescription.Deployable.IsNegative() {
		t.Errorf("Deployable = %v, want negative", sum.Prescription.Deployable)
	}
}

func TestCurrentBalance(t *testing.T) {
	txns := []BankTxn{
		{Date: date.New(2025, 8, 20), Amount: INR(-100), RunningBalance: INR(900), HasRunningBalance: true},
		{Date: date.New(2025, 8, 1), Amount: INR(1_000), RunningBalance: INR(1_000), HasRunningBalance: true},
	}
	if got := CurrentBalance(txns, "INR"); !got.Equal(INR(900)) {
		t.Errorf("CurrentBalance() = %v, want the last running balance %v", got, INR(900))
	}
	txns[0].HasRunningBalance = false
	if got := CurrentBalance(txns, "INR"); !got.Equal(INR(900)) {
		t.Errorf("CurrentBalance() = %v, want the sum %v", got, INR(900))
	}
	if got := CurrentBalance(nil, "INR"); !got.Equal(INR(0)) {
		t.Errorf("CurrentBalance(nil) = %v, want 0", got)
	}
}
