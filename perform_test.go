package treasury

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/treasury/date"
)

var submittedAt = time.Date(2025, 9, 2, 5, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return submittedAt }

// testPrescription returns a prescription with a 6L same day order.
func testPrescription(t *testing.T) Prescription {
	t.Helper()
	asOf := date.New(2025, 9, 2)
	rx := Prescribe(testPolicy(), testCalendar(), INR(1_600_000), emptyForecast(t, asOf), at("2025-09-02", 10, 0))
	if rx.Proposal.Order == nil {
		t.Fatalf("no order proposed")
	}
	return rx
}

func TestRuleDecider(t *testing.T) {
	order := SweepOrder{Window: CutoffWindow{TradeDate: date.New(2025, 9, 2)}}
	approval := order
	approval.NeedsApproval = true

	testCases := []struct {
		name       string
		decider    RuleDecider
		order      SweepOrder
		wantStatus OrderStatus
		wantReason ReasonCode
	}{
		{"fill", RuleDecider{}, order, Filled, ReasonFilledSimulated},
		{"maker checker", RuleDecider{}, approval, Rejected, ReasonApprovalRequired},
		{"approved", RuleDecider{Approved: true}, approval, Filled, ReasonFilledSimulated},
		{"same day", RuleDecider{Today: date.New(2025, 9, 2)}, order, Filled, ReasonFilledSimulated},
		{"past trade date", RuleDecider{Today: date.New(2025, 9, 3)}, order, Rejected, ReasonTradeDatePast},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, reason := tc.decider.Decide(tc.order)
			if status != tc.wantStatus || reason != tc.wantReason {
				t.Errorf("Decide() = %v %v, want %v %v", status, reason, tc.wantStatus, tc.wantReason)
			}
		})
	}
}

func TestRandomDecider(t *testing.T) {
	always := RandomDecider{Rand: rand.New(rand.NewPCG(1, 2)), RejectRate: 1}
	never := RandomDecider{Rand: rand.New(rand.NewPCG(1, 2)), RejectRate: 0}
	for range 10 {
		if s, _ := always.Decide(SweepOrder{}); s != Rejected {
			t.Errorf("reject rate 1 filled an order")
		}
		if s, _ := never.Decide(SweepOrder{}); s != Filled {
			t.Errorf("reject rate 0 rejected an order")
		}
	}

	// same seed, same decisions.
	a := RandomDecider{Rand: rand.New(rand.NewPCG(7, 7)), RejectRate: 0.5}
	b := RandomDecider{Rand: rand.New(rand.NewPCG(7, 7)), RejectRate: 0.5}
	for i := range 20 {
		sa, _ := a.Decide(SweepOrder{})
		sb, _ := b.Decide(SweepOrder{})
		if sa != sb {
			t.Fatalf("decision %d differs with the same seed: %v != %v", i, sa, sb)
		}
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	rx := testPrescription(t)
	store := NewMemoryArtifacts()
	p := &Performer{Decider: RuleDecider{}, Store: store, Clock: fixedClock}

	got, err := p.Submit(ctx, *rx.Proposal.Order, rx)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got.Status != Filled || got.ReasonCode != ReasonFilledSimulated {
		t.Errorf("Submit() = %v %v, want filled", got.Status, got.ReasonCode)
	}
	if last := got.Reasons[len(got.Reasons)-1]; last != ReasonFilledSimulated {
		t.Errorf("last reason = %v, want %v", last, ReasonFilledSimulated)
	}
	if rx.Proposal.Order.Status != Proposed {
		t.Errorf("Submit() mutated the proposed order")
	}

	a, ok, err := store.Get(ctx, got.ID)
	if err != nil || !ok {
		t.Fatalf("no artifact stored for %s: %v", got.ID, err)
	}
	if !a.Deployable.Equal(INR(600_000)) || !a.MustKeep.Equal(INR(1_000_000)) || a.MaxTenorDays != 91 || !a.SubmittedAt.Equal(submittedAt) {
		t.Errorf("artifact = %+v", a)
	}
	if lines := strings.Split(a.Description, "\n"); len(lines) != 2 || !strings.HasPrefix(lines[0], "Deployable value: INR0.6M") {
		t.Errorf("description = %q", a.Description)
	}

	// re-submitting the proposed order returns the stored record, even with
	// a decider that would reject it.
	p.Decider = RandomDecider{Rand: rand.New(rand.NewPCG(1, 1)), RejectRate: 1}
	again, err := p.Submit(ctx, *rx.Proposal.Order, rx)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if again.Status != Filled || again.ID != got.ID {
		t.Errorf("re-Submit() = %v %v, want the stored filled order", again.Status, again.ID)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d artifacts, want 1", store.Len())
	}
}

func TestSubmitTerminal(t *testing.T) {
	store := NewMemoryArtifacts()
	p := &Performer{Decider: RuleDecider{}, Store: store}
	order := SweepOrder{ID: "x", Status: Rejected, ReasonCode: ReasonRandomReject}
	got, err := p.Submit(context.Background(), order, Prescription{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got.Status != Rejected || got.ReasonCode != ReasonRandomReject {
		t.Errorf("Submit() changed a terminal order: %v %v", got.Status, got.ReasonCode)
	}
	if store.Len() != 0 {
		t.Errorf("Submit() of a terminal order wrote an artifact")
	}
}

func TestDirArtifacts(t *testing.T) {
	ctx := context.Background()
	dir := DirArtifacts{Dir: filepath.Join(t.TempDir(), "out")}
	rx := testPrescription(t)
	p := &Performer{Decider: RuleDecider{}, Store: dir, Clock: fixedClock}

	got, err := p.Submit(ctx, *rx.Proposal.Order, rx)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	a, ok, err := dir.Get(ctx, got.ID)
	if err != nil || !ok {
		t.Fatalf("Get(%s) = %v, %v", got.ID, ok, err)
	}
	if a.Order.Status != Filled || !a.Order.Amount.Equal(INR(600_000)) || a.AsOf != rx.AsOf {
		t.Errorf("stored artifact = %+v", a)
	}
	if _, err := os.Stat(filepath.Join(dir.Dir, LatestArtifactFile)); err != nil {
		t.Errorf("latest artifact not written: %v", err)
	}

	if err := dir.Put(ctx, a); !errors.Is(err, ErrArtifactExists) {
		t.Errorf("Put() twice error = %v, want %v", err, ErrArtifactExists)
	}

	// a new performer on the same directory does not decide again.
	p2 := &Performer{Decider: RuleDecider{Today: date.New(2030, 1, 1)}, Store: dir}
	again, err := p2.Submit(ctx, *rx.Proposal.Order, rx)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if again.Status != Filled {
		t.Errorf("re-Submit() = %v, want the stored filled order", again.Status)
	}

	if _, ok, err := dir.Get(ctx, "unknown"); ok || err != nil {
		t.Errorf("Get(unknown) = %v, %v, want not found", ok, err)
	}
}

func TestDescribe(t *testing.T) {
	testCases := []struct {
		name     string
		balance  Money
		mustKeep Money
		want     string
	}{
		{"surplus", INR(1_600_000), INR(1_000_000), "Limited surplus"},
		{"far below buffer", INR(700_000), INR(1_000_000), "No deployment possible"},
		{"just below buffer", INR(900_000), INR(1_000_000), "No surplus available"},
	}
	for _, tc := range testCases {
		rx := Prescription{CurrentBalance: tc.balance, MustKeep: tc.mustKeep, Deployable: tc.balance.Sub(tc.mustKeep)}
		lines := strings.Split(Describe(rx), "\n")
		if len(lines) != 2 || !strings.HasPrefix(lines[1], tc.want) {
			t.Errorf("%s: Describe() = %q, want second line %q...", tc.name, lines, tc.want)
		}
	}
}
