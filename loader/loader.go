// Package loader reads the ledger snapshots of a run from CSV files: the
// bank statement, the AR invoices, the AP bills and the holdings seed.
//
// A missing file or a missing required column is an error. A record that
// cannot be read is reported as a treasury.Defect and the run goes on
// without it.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
)

// Snapshot files of the data directory.
const (
	BankFile = "bank_txns.csv"
	ARFile   = "ar_invoices.csv"
	APFile   = "ap_bills.csv"
)

// row is one CSV record addressed by column name.
type row struct {
	line int
	col  map[string]int
	rec  []string
}

// get returns the trimmed value of a column, "" when the column is absent.
func (r row) get(name string) string {
	i, ok := r.col[name]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r row) has(name string) bool {
	_, ok := r.col[name]
	return ok
}

// readRows reads a CSV with a header line and checks the required columns.
func readRows(in io.Reader, required ...string) ([]row, error) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, k := range required {
		if _, ok := col[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	var rows []row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, row{line: line, col: col, rec: rec})
	}
	return rows, nil
}

// optionalDate parses a date column that may be empty.
func optionalDate(s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	return date.Parse(s)
}

// ReadBank reads a bank statement: date, description and amount, with
// optional counterparty_id and running_balance columns.
func ReadBank(in io.Reader, currency string) ([]treasury.BankTxn, []treasury.Defect, error) {
	rows, err := readRows(in, "date", "description", "amount")
	if err != nil {
		return nil, nil, err
	}
	var txns []treasury.BankTxn
	var defects []treasury.Defect
	defect := func(r row, field string, err error) {
		defects = append(defects, treasury.Defect{Source: treasury.SourceBank, Line: r.line, Field: field, Reason: err.Error()})
	}
	for _, r := range rows {
		day, err := date.Parse(r.get("date"))
		if err != nil {
			defect(r, "date", err)
			continue
		}
		amount, err := treasury.ParseMajor(r.get("amount"), currency)
		if err != nil {
			defect(r, "amount", err)
			continue
		}
		t := treasury.BankTxn{
			Date:         day,
			Description:  r.get("description"),
			Counterparty: r.get("counterparty_id"),
			Amount:       amount,
		}
		if s := r.get("running_balance"); s != "" {
			if t.RunningBalance, err = treasury.ParseMajor(s, currency); err != nil {
				defect(r, "running_balance", err)
				continue
			}
			t.HasRunningBalance = true
		}
		txns = append(txns, t)
	}
	return txns, defects, nil
}

// ReadReceivables reads AR invoices. A due date that cannot be parsed is
// left zero, the forecast reports the invoice as a defect.
func ReadReceivables(in io.Reader, currency string) ([]treasury.Receivable, []treasury.Defect, error) {
	rows, err := readRows(in, "invoice_id", "customer_id", "invoice_date", "due_date", "amount", "status")
	if err != nil {
		return nil, nil, err
	}
	var res []treasury.Receivable
	var defects []treasury.Defect
	for _, r := range rows {
		id := r.get("invoice_id")
		amount, err := treasury.ParseMajor(r.get("amount"), currency)
		if err != nil {
			defects = append(defects, treasury.Defect{Source: treasury.SourceAR, RecordID: id, Line: r.line, Field: "amount", Reason: err.Error()})
			continue
		}
		rec := treasury.Receivable{
			ID:       id,
			Customer: r.get("customer_id"),
			Amount:   amount,
			Status:   treasury.RecordStatus(strings.ToLower(r.get("status"))),
		}
		rec.DueDate, _ = date.Parse(r.get("due_date"))
		rec.IssueDate, _ = optionalDate(r.get("invoice_date"))
		if r.has("paid_date") {
			rec.PaidDate, _ = optionalDate(r.get("paid_date"))
		}
		res = append(res, rec)
	}
	return res, defects, nil
}

// ReadPayables reads AP bills. As for invoices, an unparseable due date is
// left to the forecast to report. An unknown vendor tier drops the bill.
func ReadPayables(in io.Reader, currency string) ([]treasury.Payable, []treasury.Defect, error) {
	rows, err := readRows(in, "bill_id", "vendor_id", "vendor_tier", "bill_date", "due_date", "amount", "status")
	if err != nil {
		return nil, nil, err
	}
	var res []treasury.Payable
	var defects []treasury.Defect
	for _, r := range rows {
		id := r.get("bill_id")
		amount, err := treasury.ParseMajor(r.get("amount"), currency)
		if err != nil {
			defects = append(defects, treasury.Defect{Source: treasury.SourceAP, RecordID: id, Line: r.line, Field: "amount", Reason: err.Error()})
			continue
		}
		tier, err := treasury.ParseVendorTier(strings.ToLower(r.get("vendor_tier")))
		if err != nil {
			defects = append(defects, treasury.Defect{Source: treasury.SourceAP, RecordID: id, Line: r.line, Field: "vendor_tier", Reason: err.Error()})
			continue
		}
		rec := treasury.Payable{
			ID:         id,
			Vendor:     r.get("vendor_id"),
			VendorTier: tier,
			Amount:     amount,
			Status:     treasury.RecordStatus(strings.ToLower(r.get("status"))),
		}
		rec.DueDate, _ = date.Parse(r.get("due_date"))
		rec.IssueDate, _ = optionalDate(r.get("bill_date"))
		if r.has("paid_date") {
			rec.PaidDate, _ = optionalDate(r.get("paid_date"))
		}
		res = append(res, rec)
	}
	return res, defects, nil
}

// readFile opens a file of dir and reads it with read.
func readFile[T any](dir, name, currency string, read func(io.Reader, string) ([]T, []treasury.Defect, error)) ([]T, []treasury.Defect, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	res, defects, err := read(f, currency)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, defects, nil
}

// LoadDir reads the three snapshot files of dir.
func LoadDir(dir, currency string) (treasury.Inputs, error) {
	var in treasury.Inputs
	bank, d1, err := readFile(dir, BankFile, currency, ReadBank)
	if err != nil {
		return in, err
	}
	ar, d2, err := readFile(dir, ARFile, currency, ReadReceivables)
	if err != nil {
		return in, err
	}
	ap, d3, err := readFile(dir, APFile, currency, ReadPayables)
	if err != nil {
		return in, err
	}
	in.Bank, in.Receivables, in.Payables = bank, ar, ap
	in.Defects = append(append(d1, d2...), d3...)
	return in, nil
}
