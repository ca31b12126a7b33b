package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"cashbook/internal/core"
	"cashbook/internal/ledger"
	"cashbook/internal/services"
)

func sampleLedger() services.LedgerView {
	entries := []core.Entry{
		{
			ID:        "e1",
			Date:      core.NewDate(2025, 2, 1),
			Amount:    decimal.NewFromInt(100),
			Category:  "Materials",
			Direction: core.DirectionOut,
			Mode:      "Cash",
			Remarks:   "cement",
		},
		{
			ID:        "e2",
			Date:      core.NewDate(2025, 2, 2),
			Amount:    decimal.NewFromInt(30),
			Category:  "Labor",
			Direction: core.DirectionOut,
			Mode:      "Bank",
			Remarks:   "mason",
		},
	}
	opening := decimal.NewFromInt(500)
	rows := ledger.EntryRows(entries, opening)
	in, out, net := ledger.CashTotals(entries)
	return services.LedgerView{
		Opening:      opening,
		Rows:         rows,
		CashIn:       in,
		CashOut:      out,
		NetCash:      net,
		TotalExpense: ledger.TotalExpense(rows),
	}
}

func TestEntriesXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := EntriesXLSX(&buf, sampleLedger(), "Entries"); err != nil {
		t.Fatalf("entries xlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Entries", "H2")
	if err != nil {
		t.Fatalf("get H2: %v", err)
	}
	if got != "400" {
		t.Errorf("first balance cell = %q, want 400", got)
	}

	footer, err := f.GetCellValue("Entries", "I4")
	if err != nil {
		t.Fatalf("get I4: %v", err)
	}
	if footer != "130" {
		t.Errorf("total expense cell = %q, want 130", footer)
	}
}

func TestMembersXLSXInstallmentColumns(t *testing.T) {
	view := services.MembersView{
		Columns: []int{2, 10},
		Members: []services.MemberView{
			{
				Member: core.Member{
					Name:         "Karim",
					Subscription: decimal.NewFromInt(1000),
					Installments: map[int]core.InstallmentSlot{
						2: {PaidOn: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(200)},
					},
				},
				TotalPaid: decimal.NewFromInt(200),
				Due:       decimal.NewFromInt(800),
			},
		},
	}

	var buf bytes.Buffer
	if err := MembersXLSX(&buf, view, "Members"); err != nil {
		t.Fatalf("members xlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	e1, _ := f.GetCellValue("Members", "E1")
	f1, _ := f.GetCellValue("Members", "F1")
	if e1 != "Inst 2" || f1 != "Inst 10" {
		t.Errorf("installment headers = %q, %q, want Inst 2, Inst 10", e1, f1)
	}

	e2, _ := f.GetCellValue("Members", "E2")
	f2, _ := f.GetCellValue("Members", "F2")
	if e2 != "200" {
		t.Errorf("slot 2 cell = %q, want 200", e2)
	}
	if f2 != "" {
		t.Errorf("unset slot cell = %q, want empty", f2)
	}
}

func TestProductXLSX(t *testing.T) {
	view := services.ProductView{
		Product: core.Product{
			Name: "Cement",
			Unit: "bag",
			Logs: []core.StockMovement{
				{Type: core.MovementIn, Quantity: 50, Date: core.NewDate(2025, 3, 1), Balance: 50},
				{Type: core.MovementOut, Quantity: 20, Date: core.NewDate(2025, 3, 2), Balance: 30},
			},
		},
		Totals: ledger.StockTotals{In: 50, Out: 20, Stock: 30},
	}

	var buf bytes.Buffer
	if err := ProductXLSX(&buf, view, "Stock"); err != nil {
		t.Fatalf("product xlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, _ := f.GetCellValue("Stock", "E3")
	if got != "30" {
		t.Errorf("stock cell = %q, want 30", got)
	}
	footer, _ := f.GetCellValue("Stock", "E4")
	if footer != "30" {
		t.Errorf("footer stock = %q, want 30", footer)
	}
}

func TestEntriesPDFProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := EntriesPDF(&buf, sampleLedger(), "Cash Book"); err != nil {
		t.Fatalf("entries pdf: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Error("output does not look like a PDF")
	}
}

func TestMembersPDFProducesDocument(t *testing.T) {
	view := services.MembersView{
		Members: []services.MemberView{
			{Member: core.Member{Name: "Karim"}, TotalPaid: decimal.NewFromInt(10), Due: decimal.NewFromInt(90)},
		},
	}
	var buf bytes.Buffer
	if err := MembersPDF(&buf, view, "Members"); err != nil {
		t.Fatalf("members pdf: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Error("output does not look like a PDF")
	}
}

func TestProductPDFProducesDocument(t *testing.T) {
	view := services.ProductView{
		Product: core.Product{
			Name: "Cement",
			Logs: []core.StockMovement{
				{Type: core.MovementIn, Quantity: 50, Date: core.NewDate(2025, 3, 1), Balance: 50},
			},
		},
		Totals: ledger.StockTotals{In: 50, Stock: 50},
	}
	var buf bytes.Buffer
	if err := ProductPDF(&buf, view); err != nil {
		t.Fatalf("product pdf: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Error("output does not look like a PDF")
	}
}
