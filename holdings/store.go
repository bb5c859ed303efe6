// Package holdings implements the holdings ledger: the corpus invested per
// instrument and issuer, and its daily interest accruals.
//
// The ledger is a SQLite database. Every mutation runs in a single
// transaction, so a reader never sees a half applied command.
package holdings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Config of a Store.
type Config struct {
	Path     string
	Currency string             // "INR" when empty.
	Logger   logrus.FieldLogger // discards when nil.
}

// Store is the holdings ledger.
type Store struct {
	db       *sql.DB
	cur      string
	log      logrus.FieldLogger
	validate *validator.Validate
}

// Open opens the ledger at cfg.Path, creating it and migrating its schema
// if needed.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("missing holdings database path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("cannot create holdings directory: %w", err)
	}
	if err := runMigrations(cfg.Path); err != nil {
		return nil, err
	}
	db, err := openDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open holdings database %q: %w", cfg.Path, err)
	}
	s := &Store{db: db, cur: cfg.Currency, log: cfg.Logger, validate: validator.New()}
	if s.cur == "" {
		s.cur = "INR"
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(discard{})
		s.log = l
	}
	s.log = s.log.WithField("module", "holdings")
	return s, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Currency is the currency of every amount of the ledger.
func (s *Store) Currency() string { return s.cur }

func (s *Store) money(minor int64) treasury.Money { return treasury.Minor(minor, s.cur) }

// checkCurrency rejects amounts in another currency than the ledger's.
func (s *Store) checkCurrency(m treasury.Money) error {
	if c := m.Currency(); c != "" && c != s.cur {
		return fmt.Errorf("amount in %s, ledger holds %s", c, s.cur)
	}
	return nil
}

func nextRevision(ctx context.Context, tx *sql.Tx) (int64, error) {
	var rev int64
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(revision), 0) + 1 FROM holdings`).Scan(&rev)
	return rev, err
}

// Allocate creates a holding or increases its principal. An existing
// holding keeps its rate and accrual basis.
func (s *Store) Allocate(ctx context.Context, a Allocation) (AllocationResult, error) {
	res := AllocationResult{Instrument: a.Instrument, Issuer: a.Issuer, Allocated: s.money(0), Principal: s.money(0)}
	if !a.Amount.IsPositive() {
		res.Outcome = rejected(InvalidAmount, "allocation amount must be positive, got %s", a.Amount)
		return res, nil
	}
	if err := s.checkCurrency(a.Amount); err != nil {
		res.Outcome = rejected(InvalidAllocation, "%v", err)
		return res, nil
	}
	if err := s.validate.Struct(a); err != nil {
		res.Outcome = rejected(InvalidAllocation, "%v", err)
		return res, nil
	}
	basis := a.BasisDays
	if basis == 0 {
		basis = DefaultBasisDays
	}
	amount := a.Amount.MinorUnits()

	action := Updated
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		rev, err := nextRevision(ctx, tx)
		if err != nil {
			return err
		}
		r, err := tx.ExecContext(ctx, `UPDATE holdings SET principal_minor = principal_minor + ?, revision = ?
			WHERE instrument_name = ? AND issuer = ?`, amount, rev, a.Instrument, a.Issuer)
		if err != nil {
			return err
		}
		if n, err := r.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			action = Created
			if _, err := tx.ExecContext(ctx, `INSERT INTO holdings
				(instrument_name, issuer, principal_minor, currency, annual_rate_bps, accrual_basis_days, revision)
				VALUES (?, ?, ?, ?, ?, ?, ?)`, a.Instrument, a.Issuer, amount, s.cur, a.RateBps, basis, rev); err != nil {
				return err
			}
		}
		var principal int64
		if err := tx.QueryRowContext(ctx, `SELECT principal_minor FROM holdings WHERE instrument_name = ? AND issuer = ?`,
			a.Instrument, a.Issuer).Scan(&principal); err != nil {
			return err
		}
		res.Principal = s.money(principal)
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("cannot allocate %s to %s/%s: %w", a.Amount, a.Instrument, a.Issuer, err)
	}
	res.Outcome = succeeded(action)
	res.Allocated = s.money(amount)
	s.log.WithFields(logrus.Fields{"action": action, "instrument": a.Instrument, "issuer": a.Issuer, "amount": res.Allocated.String()}).Info("allocation applied")
	return res, nil
}

// Redeem reduces the total corpus by amount, drawing from the holdings in
// the order of strategy. It is all or nothing: when the corpus is not
// enough the outcome is insufficient_funds and no holding changes.
func (s *Store) Redeem(ctx context.Context, amount treasury.Money, strategy Strategy) (RedemptionResult, error) {
	res := RedemptionResult{Strategy: strategy, Requested: amount, Available: s.money(0), Redemptions: []Redemption{}}
	if !amount.IsPositive() {
		res.Outcome = rejected(InvalidAmount, "redemption amount must be positive, got %s", amount)
		return res, nil
	}
	if err := s.checkCurrency(amount); err != nil {
		res.Outcome = rejected(InvalidAmount, "%v", err)
		return res, nil
	}
	switch strategy {
	case MostRecentFirst, OldestFirst, LargestFirst, ProRata:
	default:
		res.Outcome = rejected(UnknownStrategy, "unknown redemption strategy %q", strategy)
		return res, nil
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, instrument_name, issuer, principal_minor, revision
			FROM holdings WHERE principal_minor > 0`)
		if err != nil {
			return err
		}
		var lots []lot
		var total int64
		for rows.Next() {
			var l lot
			if err := rows.Scan(&l.id, &l.instrument, &l.issuer, &l.principal, &l.revision); err != nil {
				rows.Close()
				return err
			}
			lots = append(lots, l)
			total += l.principal
		}
		if err := rows.Close(); err != nil {
			return err
		}
		res.Available = s.money(total)
		if total < amount.MinorUnits() {
			res.Outcome = rejected(InsufficientFunds, "insufficient funds: need %s, available %s", amount, res.Available)
			return nil
		}

		drawn := plan(lots, amount.MinorUnits(), strategy)
		for i, l := range lots {
			if drawn[i] == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE holdings SET principal_minor = principal_minor - ? WHERE id = ?`, drawn[i], l.id); err != nil {
				return err
			}
			res.Redemptions = append(res.Redemptions, Redemption{
				Instrument: l.instrument,
				Issuer:     l.issuer,
				Redeemed:   s.money(drawn[i]),
				Remaining:  s.money(l.principal - drawn[i]),
			})
		}
		res.Outcome = succeeded(Redeemed)
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("cannot redeem %s: %w", amount, err)
	}
	s.log.WithFields(logrus.Fields{"action": res.Action, "status": res.Status, "strategy": strategy, "amount": amount.String(), "holdings": len(res.Redemptions)}).Info("redemption processed")
	return res, nil
}

// PostAccrual posts the daily interest of every holding with a positive
// principal for day. Posting a day again is a no-op that returns the stored
// entries, tagged existing.
func (s *Store) PostAccrual(ctx context.Context, day date.Date) (AccrualResult, error) {
	if day.IsZero() {
		return AccrualResult{}, errors.New("missing accrual date")
	}
	res := AccrualResult{Date: day, Total: s.money(0), Entries: []AccrualEntry{}}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		hs, err := queryHoldings(ctx, tx, s.cur, `WHERE principal_minor > 0 ORDER BY instrument_name, issuer`)
		if err != nil {
			return err
		}
		for _, h := range hs {
			e := AccrualEntry{
				Date:       day,
				Instrument: h.Instrument,
				Issuer:     h.Issuer,
				Opening:    h.Principal,
				RateBps:    h.RateBps,
				BasisDays:  h.BasisDays,
				Interest:   h.DailyInterest,
				Action:     Posted,
			}
			r, err := tx.ExecContext(ctx, `INSERT INTO interest_accruals
				(accrual_date, instrument_name, issuer, opening_minor, annual_rate_bps, accrual_basis_days, interest_minor)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (accrual_date, instrument_name, issuer) DO NOTHING`,
				day.String(), h.Instrument, h.Issuer, h.Principal.MinorUnits(), h.RateBps, h.BasisDays, h.DailyInterest.MinorUnits())
			if err != nil {
				return err
			}
			n, err := r.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				var opening, interest int64
				if err := tx.QueryRowContext(ctx, `SELECT opening_minor, annual_rate_bps, accrual_basis_days, interest_minor
					FROM interest_accruals WHERE accrual_date = ? AND instrument_name = ? AND issuer = ?`,
					day.String(), h.Instrument, h.Issuer).Scan(&opening, &e.RateBps, &e.BasisDays, &interest); err != nil {
					return err
				}
				e.Opening, e.Interest, e.Action = s.money(opening), s.money(interest), Existing
				res.Existing++
			} else {
				res.Posted++
			}
			res.Total = res.Total.Add(e.Interest)
			res.Entries = append(res.Entries, e)
		}
		return nil
	})
	if err != nil {
		return AccrualResult{}, fmt.Errorf("cannot post accrual for %s: %w", day, err)
	}
	action := Posted
	if res.Posted == 0 {
		action = Existing
	}
	res.Outcome = succeeded(action)
	s.log.WithFields(logrus.Fields{"action": action, "date": day.String(), "posted": res.Posted, "existing": res.Existing}).Info("accrual posted")
	return res, nil
}

// Seed loads holdings rows. Rows repeating an instrument and issuer already
// seen in the same call, or invalid rows, are skipped and reported.
func (s *Store) Seed(ctx context.Context, rows []SeedRow, mode SeedMode) (SeedResult, error) {
	res := SeedResult{Mode: mode, Skipped: []SeedSkip{}}
	if mode != Overwrite && mode != Update {
		res.Outcome = rejected(InvalidAllocation, "unknown seed mode %q", mode)
		return res, nil
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if mode == Overwrite {
			cleared, err := clear(ctx, tx)
			if err != nil {
				return err
			}
			res.Cleared = &cleared
		}
		seen := make(map[[2]string]bool)
		for _, row := range rows {
			skip := SeedSkip{Line: row.Line, Instrument: row.Instrument, Issuer: row.Issuer}
			key := [2]string{row.Instrument, row.Issuer}
			switch {
			case row.Instrument == "" || row.Issuer == "":
				skip.Reason = "missing instrument or issuer"
			case row.Amount.IsNegative() || row.RateBps < 0 || row.BasisDays < 0:
				skip.Reason = "negative amount, rate or basis"
			case s.checkCurrency(row.Amount) != nil:
				skip.Reason = s.checkCurrency(row.Amount).Error()
			case seen[key]:
				skip.Reason = "duplicate instrument and issuer"
			}
			if skip.Reason != "" {
				res.Skipped = append(res.Skipped, skip)
				continue
			}
			seen[key] = true

			basis := row.BasisDays
			if basis == 0 {
				basis = DefaultBasisDays
			}
			rev, err := nextRevision(ctx, tx)
			if err != nil {
				return err
			}
			r, err := tx.ExecContext(ctx, `UPDATE holdings
				SET principal_minor = principal_minor + ?, annual_rate_bps = ?, accrual_basis_days = ?, revision = ?
				WHERE instrument_name = ? AND issuer = ?`, row.Amount.MinorUnits(), row.RateBps, basis, rev, row.Instrument, row.Issuer)
			if err != nil {
				return err
			}
			if n, err := r.RowsAffected(); err != nil {
				return err
			} else if n > 0 {
				res.Updated++
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO holdings
				(instrument_name, issuer, principal_minor, currency, annual_rate_bps, accrual_basis_days, revision)
				VALUES (?, ?, ?, ?, ?, ?, ?)`, row.Instrument, row.Issuer, row.Amount.MinorUnits(), s.cur, row.RateBps, basis, rev); err != nil {
				return err
			}
			res.Inserted++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("cannot seed holdings: %w", err)
	}
	res.Outcome = succeeded(Created)
	if res.Inserted == 0 && res.Updated > 0 {
		res.Action = Updated
	}
	s.log.WithFields(logrus.Fields{"action": res.Action, "mode": mode, "inserted": res.Inserted, "updated": res.Updated, "skipped": len(res.Skipped)}).Info("holdings seeded")
	return res, nil
}

// Clear removes every holding and accrual entry.
func (s *Store) Clear(ctx context.Context) (ClearResult, error) {
	var res ClearResult
	err := withTx(ctx, s.db, func(tx *sql.Tx) (err error) {
		res, err = clear(ctx, tx)
		return err
	})
	if err != nil {
		return ClearResult{}, fmt.Errorf("cannot clear holdings: %w", err)
	}
	s.log.WithFields(logrus.Fields{"action": Cleared, "holdings": res.HoldingsDeleted, "accruals": res.AccrualsDeleted}).Info("holdings cleared")
	return res, nil
}

func clear(ctx context.Context, tx *sql.Tx) (ClearResult, error) {
	res := ClearResult{Outcome: succeeded(Cleared)}
	r, err := tx.ExecContext(ctx, `DELETE FROM interest_accruals`)
	if err != nil {
		return res, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return res, err
	}
	res.AccrualsDeleted = int(n)
	if r, err = tx.ExecContext(ctx, `DELETE FROM holdings`); err != nil {
		return res, err
	}
	if n, err = r.RowsAffected(); err != nil {
		return res, err
	}
	res.HoldingsDeleted = int(n)
	return res, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryHoldings(ctx context.Context, q queryer, cur string, where string) ([]Holding, error) {
	rows, err := q.QueryContext(ctx, `SELECT instrument_name, issuer, principal_minor, annual_rate_bps, accrual_basis_days, revision
		FROM holdings `+where)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hs []Holding
	for rows.Next() {
		var h Holding
		var principal int64
		if err := rows.Scan(&h.Instrument, &h.Issuer, &principal, &h.RateBps, &h.BasisDays, &h.Revision); err != nil {
			return nil, err
		}
		h.Principal = treasury.Minor(principal, cur)
		h.DailyInterest = treasury.Minor(DailyInterest(principal, h.RateBps, h.BasisDays), cur)
		hs = append(hs, h)
	}
	return hs, rows.Err()
}

// List returns all holdings, by issuer then instrument.
func (s *Store) List(ctx context.Context) ([]Holding, error) {
	hs, err := queryHoldings(ctx, s.db, s.cur, `ORDER BY issuer, instrument_name`)
	if err != nil {
		return nil, fmt.Errorf("cannot list holdings: %w", err)
	}
	return hs, nil
}

// Totals returns the total corpus and its daily interest.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	hs, err := s.List(ctx)
	if err != nil {
		return Totals{}, err
	}
	t := Totals{Corpus: s.money(0), DailyInterest: s.money(0), Holdings: len(hs)}
	for _, h := range hs {
		t.Corpus = t.Corpus.Add(h.Principal)
		t.DailyInterest = t.DailyInterest.Add(h.DailyInterest)
	}
	return t, nil
}
