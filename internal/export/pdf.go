// Package export renders the cash book views as downloadable PDF and XLSX
// documents. The row shapes mirror the on-screen tables so a printed copy
// reads the same as the app.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"cashbook/internal/services"
)

const pageBreakY = 270

// EntriesPDF writes the filtered entry ledger with running balances and
// the total-expense footer.
func EntriesPDF(w io.Writer, view services.LedgerView, title string) error {
	pdf := newPDF(title)

	colW := []float64{10, 22, 48, 26, 14, 20, 22, 22, 22}
	headers := []string{"#", "Date", "Remarks", "Category", "Type", "Mode", "Amount", "Balance", "Expenses"}

	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(245, 245, 245)
		for i, h := range headers {
			last := i == len(headers)-1
			pdf.CellFormat(colW[i], 8, h, "1", boolToLn(last), "C", true, 0, "")
		}
		pdf.SetFont("Helvetica", "", 8)
	}
	writeHeader()

	for i, row := range view.Rows {
		if pdf.GetY() > pageBreakY {
			pdf.AddPage()
			writeHeader()
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			row.Date.String(),
			trimTo(row.Remarks, 46),
			trimTo(row.Category, 24),
			string(row.Direction),
			trimTo(row.Mode, 18),
			row.Amount.StringFixed(2),
			row.Balance.StringFixed(2),
			row.Expense.StringFixed(2),
		}
		for j, c := range cells {
			align := "L"
			if j >= 6 {
				align = "R"
			}
			last := j == len(cells)-1
			pdf.CellFormat(colW[j], 7, c, "1", boolToLn(last), align, false, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "B", 9)
	footerW := colW[0] + colW[1] + colW[2] + colW[3] + colW[4] + colW[5] + colW[6] + colW[7]
	pdf.CellFormat(footerW, 8, "Total Expense", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colW[8], 8, view.TotalExpense.StringFixed(2), "1", 1, "R", true, 0, "")

	writeFooter(pdf)
	return pdf.Output(w)
}

// MembersPDF writes the member table with per-member totals.
func MembersPDF(w io.Writer, view services.MembersView, title string) error {
	pdf := newPDF(title)

	colW := []float64{12, 48, 30, 30, 30, 30}
	headers := []string{"SL", "Name", "Phone", "Subscription", "Total Paid", "Ind. Due"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(245, 245, 245)
	for i, h := range headers {
		pdf.CellFormat(colW[i], 8, h, "1", boolToLn(i == len(headers)-1), "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	for i, m := range view.Members {
		if pdf.GetY() > pageBreakY {
			pdf.AddPage()
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			trimTo(m.Name, 44),
			m.Phone,
			m.EffectiveSubscription().StringFixed(2),
			m.TotalPaid.StringFixed(2),
			m.Due.StringFixed(2),
		}
		for j, c := range cells {
			align := "L"
			if j >= 3 {
				align = "R"
			}
			pdf.CellFormat(colW[j], 7, c, "1", boolToLn(j == len(cells)-1), align, false, 0, "")
		}
	}

	writeFooter(pdf)
	return pdf.Output(w)
}

// ProductPDF writes one product's stock log with running stock levels.
func ProductPDF(w io.Writer, view services.ProductView) error {
	title := "Stock Log: " + view.Name
	if view.Unit != "" {
		title += " (" + view.Unit + ")"
	}
	pdf := newPDF(title)

	colW := []float64{28, 18, 24, 80, 24}
	headers := []string{"Date", "Type", "Quantity", "Remarks", "Stock"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(245, 245, 245)
	for i, h := range headers {
		pdf.CellFormat(colW[i], 8, h, "1", boolToLn(i == len(headers)-1), "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	for _, m := range view.Logs {
		if pdf.GetY() > pageBreakY {
			pdf.AddPage()
		}
		cells := []string{
			m.Date.String(),
			string(m.Type),
			fmt.Sprintf("%d", m.Quantity),
			trimTo(m.Remarks, 76),
			fmt.Sprintf("%d", m.Balance),
		}
		for j, c := range cells {
			align := "L"
			if j == 2 || j == 4 {
				align = "R"
			}
			pdf.CellFormat(colW[j], 7, c, "1", boolToLn(j == len(cells)-1), align, false, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colW[0]+colW[1], 8, "Totals", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colW[2], 8, fmt.Sprintf("in %d / out %d", view.Totals.In, view.Totals.Out), "1", 0, "R", true, 0, "")
	pdf.CellFormat(colW[3], 8, "", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[4], 8, fmt.Sprintf("%d", view.Totals.Stock), "1", 1, "R", true, 0, "")

	writeFooter(pdf)
	return pdf.Output(w)
}

func newPDF(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Generated "+time.Now().Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetTextColor(20, 20, 20)
	return pdf
}

func writeFooter(pdf *gofpdf.Fpdf) {
	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Cash Book "+time.Now().Format(time.RFC3339), "", 0, "C", false, 0, "")
}

func boolToLn(last bool) int {
	if last {
		return 1
	}
	return 0
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
