package treasury

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/etnz/treasury/date"
)

// Decider decides the terminal state of a submitted order.
type Decider interface {
	Decide(order SweepOrder) (OrderStatus, ReasonCode)
}

// RuleDecider fills every order except maker-checker orders that have not
// been approved, and orders whose trade date is already past.
type RuleDecider struct {
	Approved bool
	Today    date.Date // zero disables the trade date check.
}

func (d RuleDecider) Decide(order SweepOrder) (OrderStatus, ReasonCode) {
	switch {
	case !d.Today.IsZero() && order.Window.TradeDate.Before(d.Today):
		return Rejected, ReasonTradeDatePast
	case order.NeedsApproval && !d.Approved:
		return Rejected, ReasonApprovalRequired
	}
	return Filled, ReasonFilledSimulated
}

// RandomDecider rejects orders at random, at RejectRate.
type RandomDecider struct {
	Rand       *rand.Rand
	RejectRate float64
}

func (d RandomDecider) Decide(SweepOrder) (OrderStatus, ReasonCode) {
	if d.Rand.Float64() < d.RejectRate {
		return Rejected, ReasonRandomReject
	}
	return Filled, ReasonFilledSimulated
}

// Artifact is the immutable execution record of one order.
type Artifact struct {
	Order          SweepOrder `json:"order"`
	AsOf           date.Date  `json:"as_of_date"`
	CurrentBalance Money      `json:"current_balance"`
	MustKeep       Money      `json:"must_keep_value"`
	Deployable     Money      `json:"deployable_value"`
	SafetyBuffers  Money      `json:"safety_buffers"`
	Description    string     `json:"description"`
	Instrument     string     `json:"deploy_instrument"`
	Issuer         string     `json:"deploy_issuer"`
	MaxTenorDays   int        `json:"max_tenor,omitempty"`
	ApprovalNeeded bool       `json:"approval_needed"`
	SubmittedAt    time.Time  `json:"submitted_at"`
}

// ErrArtifactExists is returned by an ArtifactStore asked to overwrite an artifact.
var ErrArtifactExists = errors.New("artifact already exists")

// ArtifactStore keeps one artifact per order id.
type ArtifactStore interface {
	// Get returns the artifact of an order id, ok is false if there is none.
	Get(ctx context.Context, id string) (a Artifact, ok bool, err error)
	// Put stores a new artifact, or fails with ErrArtifactExists.
	Put(ctx context.Context, a Artifact) error
}

// MemoryArtifacts is an in-memory ArtifactStore.
type MemoryArtifacts struct {
	mu        sync.Mutex
	artifacts map[string]Artifact
}

func NewMemoryArtifacts() *MemoryArtifacts {
	return &MemoryArtifacts{artifacts: make(map[string]Artifact)}
}

func (m *MemoryArtifacts) Get(_ context.Context, id string) (Artifact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	return a, ok, nil
}

func (m *MemoryArtifacts) Put(_ context.Context, a Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.artifacts[a.Order.ID]; exists {
		return fmt.Errorf("order %s: %w", a.Order.ID, ErrArtifactExists)
	}
	m.artifacts[a.Order.ID] = a
	return nil
}

// Len returns the number of artifacts stored.
func (m *MemoryArtifacts) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.artifacts)
}

// LatestArtifactFile is the name of the latest artifact summary in a DirArtifacts.
const LatestArtifactFile = "perform.json"

// DirArtifacts stores artifacts as indented JSON files, <Dir>/<order id>.json.
// Each file is created exclusively and never rewritten. perform.json is
// overwritten with the latest artifact.
type DirArtifacts struct {
	Dir string
}

func (d DirArtifacts) path(id string) string { return filepath.Join(d.Dir, id+".json") }

func (d DirArtifacts) Get(_ context.Context, id string) (Artifact, bool, error) {
	var a Artifact
	content, err := os.ReadFile(d.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return a, false, nil
	}
	if err != nil {
		return a, false, fmt.Errorf("cannot read artifact of order %s: %w", id, err)
	}
	if err := json.Unmarshal(content, &a); err != nil {
		return a, false, fmt.Errorf("cannot decode artifact of order %s: %w", id, err)
	}
	return a, true, nil
}

func (d DirArtifacts) Put(_ context.Context, a Artifact) error {
	content, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode artifact of order %s: %w", a.Order.ID, err)
	}
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("cannot create artifact directory: %w", err)
	}
	f, err := os.OpenFile(d.path(a.Order.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("order %s: %w", a.Order.ID, ErrArtifactExists)
	}
	if err != nil {
		return fmt.Errorf("cannot create artifact of order %s: %w", a.Order.ID, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("cannot write artifact of order %s: %w", a.Order.ID, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.Dir, LatestArtifactFile), content, 0644)
}

// Performer simulates the execution of sweep orders.
type Performer struct {
	Decider Decider
	Store   ArtifactStore
	Clock   func() time.Time // time.Now when nil.
}

// Submit moves a proposed order to a terminal state and records its artifact.
//
// A terminal order is returned unchanged. If the store already holds an
// artifact for the order id, the recorded order is returned and nothing is
// decided again. rx is the prescription the order comes from, it feeds the
// artifact.
func (p *Performer) Submit(ctx context.Context, order SweepOrder, rx Prescription) (SweepOrder, error) {
	if order.Status.IsTerminal() {
		return order, nil
	}
	if a, ok, err := p.Store.Get(ctx, order.ID); err != nil {
		return order, err
	} else if ok {
		return a.Order, nil
	}

	order.Status = Submitted
	status, reason := p.Decider.Decide(order)
	order.Status = status
	order.ReasonCode = reason
	order.Reasons = slices.Concat(order.Reasons, []ReasonCode{reason})

	now := time.Now
	if p.Clock != nil {
		now = p.Clock
	}
	a := Artifact{
		Order:          order,
		AsOf:           rx.AsOf,
		CurrentBalance: rx.CurrentBalance,
		MustKeep:       rx.MustKeep,
		Deployable:     rx.Deployable,
		SafetyBuffers:  rx.Buffers.Total,
		Description:    Describe(rx),
		Instrument:     order.Instrument,
		Issuer:         order.Issuer,
		MaxTenorDays:   order.MaxTenorDays,
		ApprovalNeeded: order.NeedsApproval,
		SubmittedAt:    now(),
	}
	if err := p.Store.Put(ctx, a); errors.Is(err, ErrArtifactExists) {
		// lost a race with a concurrent submission, the stored record wins.
		stored, ok, err := p.Store.Get(ctx, order.ID)
		if err != nil {
			return order, err
		}
		if !ok {
			return order, fmt.Errorf("order %s: %w but cannot be read back", order.ID, ErrArtifactExists)
		}
		return stored.Order, nil
	} else if err != nil {
		return order, err
	}
	return order, nil
}

// Describe explains the deployable value in two lines.
func Describe(rx Prescription) string {
	a := rx.Attribution.CashFlows
	line1 := fmt.Sprintf("Deployable value: %s from current balance %s, expected AR %s, AP %s, buffer %s.",
		rx.Deployable.Millions(), rx.CurrentBalance.Millions(), a.ExpectedInflow.Millions(), a.ExpectedOutflow.Millions(), rx.MustKeep.Millions())

	var line2 string
	switch {
	case rx.Deployable.IsPositive() && a.ExpectedInflow.GreaterThan(a.ExpectedOutflow):
		line2 = "Strong inflow position enables surplus deployment after maintaining prudent safety buffers."
	case rx.Deployable.IsPositive():
		line2 = "Limited surplus available due to high outflow requirements and conservative buffer maintenance."
	case rx.CurrentBalance.Times(5).LessThan(rx.MustKeep.Times(4)):
		line2 = "No deployment possible, current balance below safety buffer requirements."
	default:
		line2 = "No surplus available after accounting for expected outflows and mandatory buffers."
	}
	return line1 + "\n" + line2
}
