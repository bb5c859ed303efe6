package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
)

func TestReadBank(t *testing.T) {
	csv := `date,description,amount,counterparty_id,running_balance
2025-08-28,Opening,1500000.00,,1500000.00
2025-08-29,Customer receipt,100000.50,CUST-1,1600000.50
yesterday,Broken,10,,
2025-08-29,Broken amount,ten,,
`
	txns, defects, err := ReadBank(strings.NewReader(csv), "INR")
	if err != nil {
		t.Fatalf("ReadBank() error = %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("ReadBank() = %d transactions, want 2", len(txns))
	}
	if !txns[1].HasRunningBalance || txns[1].Counterparty != "CUST-1" {
		t.Errorf("second transaction = %+v", txns[1])
	}
	if got, want := treasury.CurrentBalance(txns, "INR"), treasury.Minor(160000050, "INR"); !got.Equal(want) {
		t.Errorf("CurrentBalance() = %v, want %v", got, want)
	}
	if len(defects) != 2 {
		t.Fatalf("defects = %v, want 2", defects)
	}
	if d := defects[0]; d.Line != 4 || d.Field != "date" || d.Source != treasury.SourceBank {
		t.Errorf("defects[0] = %+v, want bank line 4 date", d)
	}
	if d := defects[1]; d.Line != 5 || d.Field != "amount" {
		t.Errorf("defects[1] = %+v, want line 5 amount", d)
	}
}

func TestReadBankWithoutRunningBalance(t *testing.T) {
	csv := "date,description,amount\n2025-08-28,a,100\n2025-08-29,b,-40.25\n"
	txns, _, err := ReadBank(strings.NewReader(csv), "INR")
	if err != nil {
		t.Fatalf("ReadBank() error = %v", err)
	}
	if got, want := treasury.CurrentBalance(txns, "INR"), treasury.Minor(5975, "INR"); !got.Equal(want) {
		t.Errorf("CurrentBalance() = %v, want %v", got, want)
	}
}

func TestReadReceivables(t *testing.T) {
	csv := `invoice_id,customer_id,invoice_date,due_date,amount,status,paid_date
INV-1,CUST-1,2025-08-01,2025-09-02,100000,open,
INV-2,CUST-2,2025-08-01,someday,5000,open,
INV-3,CUST-2,2025-08-01,2025-08-20,5000,Paid,2025-08-19
INV-4,CUST-3,2025-08-01,2025-08-20,n/a,open,
`
	recs, defects, err := ReadReceivables(strings.NewReader(csv), "INR")
	if err != nil {
		t.Fatalf("ReadReceivables() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("ReadReceivables() = %d records, want 3", len(recs))
	}
	if recs[0].DueDate != date.MustParse("2025-09-02") || !recs[0].Amount.Equal(treasury.Minor(10_000_000, "INR")) {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if !recs[1].DueDate.IsZero() {
		t.Errorf("unparseable due date = %v, want zero", recs[1].DueDate)
	}
	if recs[2].Status != treasury.Paid || recs[2].PaidDate != date.MustParse("2025-08-19") {
		t.Errorf("recs[2] = %+v, want paid on 2025-08-19", recs[2])
	}
	if len(defects) != 1 || defects[0].RecordID != "INV-4" || defects[0].Source != treasury.SourceAR {
		t.Errorf("defects = %v, want INV-4 amount", defects)
	}
}

func TestReadPayables(t *testing.T) {
	csv := `bill_id,vendor_id,vendor_tier,bill_date,due_date,amount,status
BILL-1,V1,critical,2025-08-01,2025-09-01,40000,open
BILL-2,V2,gold,2025-08-01,2025-09-01,1,open
BILL-3,V3,Regular,2025-08-01,2025-09-10,2500.75,open
`
	recs, defects, err := ReadPayables(strings.NewReader(csv), "INR")
	if err != nil {
		t.Fatalf("ReadPayables() error = %v", err)
	}
	if len(recs) != 2 || recs[1].VendorTier != treasury.Regular {
		t.Fatalf("ReadPayables() = %+v", recs)
	}
	if len(defects) != 1 || defects[0].Field != "vendor_tier" || defects[0].Line != 3 {
		t.Errorf("defects = %v, want BILL-2 vendor_tier on line 3", defects)
	}
}

func TestMissingColumns(t *testing.T) {
	_, _, err := ReadPayables(strings.NewReader("bill_id,amount\nB,1\n"), "INR")
	if err == nil || !strings.Contains(err.Error(), "vendor_tier") {
		t.Errorf("ReadPayables() error = %v, want missing vendor_tier", err)
	}
}

func TestReadSeed(t *testing.T) {
	csv := `instrument_name,issuer,amount_rupees,expected_annual_rate_bps,accrual_basis_days
Liquid Fund A,AMC One,100000,630,
T-Bill 91D,RBI,50000.25,650,364
Broken,RBI,50000,six,
`
	rows, defects, err := ReadSeed(strings.NewReader(csv), "INR")
	if err != nil {
		t.Fatalf("ReadSeed() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ReadSeed() = %d rows, want 2", len(rows))
	}
	if rows[0].Line != 2 || rows[0].BasisDays != 0 || rows[0].RateBps != 630 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].BasisDays != 364 || rows[1].Amount.MinorUnits() != 5_000_025 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
	if len(defects) != 1 || defects[0].Field != "expected_annual_rate_bps" {
		t.Errorf("defects = %v", defects)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		BankFile: "date,description,amount\n2025-08-29,a,100\n",
		ARFile:   "invoice_id,customer_id,invoice_date,due_date,amount,status\nI,C,2025-08-01,2025-09-01,10,open\n",
		APFile:   "bill_id,vendor_id,vendor_tier,bill_date,due_date,amount,status\nB,V,critical,2025-08-01,2025-09-01,x,open\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	in, err := LoadDir(dir, "INR")
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(in.Bank) != 1 || len(in.Receivables) != 1 || len(in.Payables) != 0 || len(in.Defects) != 1 {
		t.Errorf("LoadDir() = %+v", in)
	}

	if err := os.Remove(filepath.Join(dir, ARFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir, "INR"); err == nil {
		t.Errorf("LoadDir() without %s error = nil", ARFile)
	}
}
