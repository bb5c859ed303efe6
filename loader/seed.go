package loader

import (
	"io"
	"strconv"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/holdings"
)

// ReadSeed reads a holdings seed file: instrument_name, issuer,
// amount_rupees and expected_annual_rate_bps, with an optional
// accrual_basis_days column.
func ReadSeed(in io.Reader, currency string) ([]holdings.SeedRow, []treasury.Defect, error) {
	rows, err := readRows(in, "instrument_name", "issuer", "amount_rupees", "expected_annual_rate_bps")
	if err != nil {
		return nil, nil, err
	}
	var res []holdings.SeedRow
	var defects []treasury.Defect
	defect := func(r row, field string, err error) {
		defects = append(defects, treasury.Defect{Source: treasury.SourceHoldings, RecordID: r.get("instrument_name"), Line: r.line, Field: field, Reason: err.Error()})
	}
	for _, r := range rows {
		amount, err := treasury.ParseMajor(r.get("amount_rupees"), currency)
		if err != nil {
			defect(r, "amount_rupees", err)
			continue
		}
		rate, err := strconv.Atoi(r.get("expected_annual_rate_bps"))
		if err != nil {
			defect(r, "expected_annual_rate_bps", err)
			continue
		}
		seed := holdings.SeedRow{
			Line:       r.line,
			Instrument: r.get("instrument_name"),
			Issuer:     r.get("issuer"),
			Amount:     amount,
			RateBps:    rate,
		}
		if s := r.get("accrual_basis_days"); s != "" {
			if seed.BasisDays, err = strconv.Atoi(s); err != nil {
				defect(r, "accrual_basis_days", err)
				continue
			}
		}
		res = append(res, seed)
	}
	return res, defects, nil
}
