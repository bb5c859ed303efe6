package holdings

import (
	"context"
	"fmt"

	"github.com/etnz/treasury/date"
	"github.com/shopspring/decimal"
)

// YTDTotals sums the interest accrued during year.
func (s *Store) YTDTotals(ctx context.Context, year int) (YTD, error) {
	r := date.Year(year)
	var interest int64
	res := YTD{Year: year}
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(interest_minor), 0), COUNT(*),
			COUNT(DISTINCT accrual_date), COUNT(DISTINCT instrument_name || '|' || issuer)
		FROM interest_accruals WHERE accrual_date BETWEEN ? AND ?`,
		r.From.String(), r.To.String()).Scan(&interest, &res.Records, &res.Days, &res.Instruments)
	if err != nil {
		return YTD{}, fmt.Errorf("cannot sum interest of %d: %w", year, err)
	}
	res.Interest = s.money(interest)
	return res, nil
}

// DailySeries returns the interest accrued on each day of r that has
// entries, in date order.
func (s *Store) DailySeries(ctx context.Context, r date.Range) ([]DailyPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT accrual_date, SUM(interest_minor), COUNT(*)
		FROM interest_accruals WHERE accrual_date BETWEEN ? AND ?
		GROUP BY accrual_date ORDER BY accrual_date`, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("cannot query daily series %s: %w", r, err)
	}
	defer rows.Close()
	series := []DailyPoint{}
	for rows.Next() {
		var day string
		var interest int64
		var p DailyPoint
		if err := rows.Scan(&day, &interest, &p.Instruments); err != nil {
			return nil, err
		}
		if p.Date, err = date.Parse(day); err != nil {
			return nil, err
		}
		p.Interest = s.money(interest)
		series = append(series, p)
	}
	return series, rows.Err()
}

// Attribution groups the interest accrued over r by holding, largest
// interest first. Average opening balance and rate are floored.
func (s *Store) Attribution(ctx context.Context, r date.Range) ([]HoldingInterest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT instrument_name, issuer, SUM(interest_minor), SUM(opening_minor),
			SUM(annual_rate_bps * opening_minor), SUM(annual_rate_bps), COUNT(*)
		FROM interest_accruals WHERE accrual_date BETWEEN ? AND ?
		GROUP BY instrument_name, issuer
		ORDER BY SUM(interest_minor) DESC, instrument_name, issuer`, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("cannot query attribution %s: %w", r, err)
	}
	defer rows.Close()
	res := []HoldingInterest{}
	for rows.Next() {
		var h HoldingInterest
		var interest, opening, weighted, rates int64
		if err := rows.Scan(&h.Instrument, &h.Issuer, &interest, &opening, &weighted, &rates, &h.Days); err != nil {
			return nil, err
		}
		h.Interest = s.money(interest)
		h.AvgOpening = s.money(floorDiv(opening, int64(h.Days)))
		if opening > 0 {
			h.AvgRateBps = floorDiv(weighted, opening)
		} else {
			h.AvgRateBps = floorDiv(rates, int64(h.Days))
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

func floorDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return decimal.NewFromInt(a).Div(decimal.NewFromInt(b)).Floor().IntPart()
}

// DailyDetail returns every accrual entry of r, by date then holding.
func (s *Store) DailyDetail(ctx context.Context, r date.Range) ([]AccrualEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT accrual_date, instrument_name, issuer, opening_minor,
			annual_rate_bps, accrual_basis_days, interest_minor
		FROM interest_accruals WHERE accrual_date BETWEEN ? AND ?
		ORDER BY accrual_date, instrument_name, issuer`, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("cannot query daily detail %s: %w", r, err)
	}
	defer rows.Close()
	entries := []AccrualEntry{}
	for rows.Next() {
		var e AccrualEntry
		var day string
		var opening, interest int64
		if err := rows.Scan(&day, &e.Instrument, &e.Issuer, &opening, &e.RateBps, &e.BasisDays, &interest); err != nil {
			return nil, err
		}
		if e.Date, err = date.Parse(day); err != nil {
			return nil, err
		}
		e.Opening, e.Interest = s.money(opening), s.money(interest)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReconcileRange sums the daily series, the attribution and the detail of r.
// They are Balanced when the three totals are equal.
func (s *Store) ReconcileRange(ctx context.Context, r date.Range) (Reconciliation, error) {
	rec := Reconciliation{Range: r, Series: s.money(0), Attribution: s.money(0), Detail: s.money(0)}
	series, err := s.DailySeries(ctx, r)
	if err != nil {
		return rec, err
	}
	for _, p := range series {
		rec.Series = rec.Series.Add(p.Interest)
	}
	attr, err := s.Attribution(ctx, r)
	if err != nil {
		return rec, err
	}
	for _, h := range attr {
		rec.Attribution = rec.Attribution.Add(h.Interest)
	}
	detail, err := s.DailyDetail(ctx, r)
	if err != nil {
		return rec, err
	}
	for _, e := range detail {
		rec.Detail = rec.Detail.Add(e.Interest)
	}
	rec.Balanced = rec.Series.Equal(rec.Attribution) && rec.Series.Equal(rec.Detail)
	return rec, nil
}
