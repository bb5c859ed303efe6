package holdings

import (
	"context"
	"fmt"
	"io"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the xlsx export.
const (
	HoldingsSheet    = "Holdings"
	DailySheet       = "Daily"
	AttributionSheet = "Attribution"
)

// ExportXLSX writes a workbook with the current holdings, the daily series
// and the attribution of r. Amounts are in major units.
func (s *Store) ExportXLSX(ctx context.Context, r date.Range, w io.Writer) error {
	hs, err := s.List(ctx)
	if err != nil {
		return err
	}
	series, err := s.DailySeries(ctx, r)
	if err != nil {
		return err
	}
	attr, err := s.Attribution(ctx, r)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", HoldingsSheet); err != nil {
		return err
	}
	rows := make([][]any, 0, len(hs))
	for _, h := range hs {
		rows = append(rows, []any{h.Instrument, h.Issuer, major(h.Principal), h.RateBps, h.BasisDays, major(h.DailyInterest)})
	}
	if err := writeSheet(f, HoldingsSheet, rows, "Instrument", "Issuer", "Principal", "RateBps", "BasisDays", "DailyInterest"); err != nil {
		return err
	}

	rows = rows[:0]
	for _, p := range series {
		rows = append(rows, []any{p.Date.String(), major(p.Interest), p.Instruments})
	}
	if err := writeSheet(f, DailySheet, rows, "Date", "Interest", "Instruments"); err != nil {
		return err
	}

	rows = rows[:0]
	for _, h := range attr {
		rows = append(rows, []any{h.Instrument, h.Issuer, major(h.Interest), major(h.AvgOpening), h.AvgRateBps, h.Days})
	}
	if err := writeSheet(f, AttributionSheet, rows, "Instrument", "Issuer", "Interest", "AvgOpening", "AvgRateBps", "Days"); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("cannot write holdings workbook: %w", err)
	}
	return nil
}

func major(m treasury.Money) float64 { return m.Major().InexactFloat64() }

// writeSheet writes headings on the first row and one row per value slice.
func writeSheet(f *excelize.File, sheet string, rows [][]any, headings ...string) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	col := 'A'
	for _, h := range headings {
		if err := f.SetCellValue(sheet, string(col)+"1", h); err != nil {
			return err
		}
		col++
	}
	for i, values := range rows {
		col := 'A'
		for _, v := range values {
			if err := f.SetCellValue(sheet, string(col)+fmt.Sprint(i+2), v); err != nil {
				return err
			}
			col++
		}
	}
	return nil
}
