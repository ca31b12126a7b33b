package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"cashbook/internal/services"
)

// EntriesXLSX writes the filtered entry ledger as a spreadsheet, ending
// with the total-expense footer row.
func EntriesXLSX(w io.Writer, view services.LedgerView, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"#", "Date", "Remarks", "Category", "Type", "Payment Mode", "Amount", "Balance", "Expenses"}
	if err := writeRow(f, sheetName, 1, toAny(headers)); err != nil {
		return err
	}

	row := 2
	for i, r := range view.Rows {
		cells := []any{
			i + 1,
			r.Date.String(),
			r.Remarks,
			r.Category,
			string(r.Direction),
			r.Mode,
			r.Amount.InexactFloat64(),
			r.Balance.InexactFloat64(),
			r.Expense.InexactFloat64(),
		}
		if err := writeRow(f, sheetName, row, cells); err != nil {
			return err
		}
		row++
	}

	footer := []any{"", "", "", "", "", "", "", "Total Expense", view.TotalExpense.InexactFloat64()}
	if err := writeRow(f, sheetName, row, footer); err != nil {
		return err
	}

	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 30)
	f.SetColWidth(sheetName, "D", "F", 15)
	f.SetColWidth(sheetName, "G", "I", 12)

	return f.Write(w)
}

// MembersXLSX writes the member table. The installment columns come after
// the fixed columns, one per index in the global column set.
func MembersXLSX(w io.Writer, view services.MembersView, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []any{"SL", "Name", "Phone", "Subscription"}
	for _, col := range view.Columns {
		headers = append(headers, fmt.Sprintf("Inst %d", col))
	}
	headers = append(headers, "Total Paid", "Ind. Due")
	if err := writeRow(f, sheetName, 1, headers); err != nil {
		return err
	}

	for i, m := range view.Members {
		cells := []any{
			i + 1,
			m.Name,
			m.Phone,
			m.EffectiveSubscription().InexactFloat64(),
		}
		for _, col := range view.Columns {
			slot, ok := m.Installments[col]
			if !ok {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, slot.Amount.InexactFloat64())
		}
		cells = append(cells, m.TotalPaid.InexactFloat64(), m.Due.InexactFloat64())
		if err := writeRow(f, sheetName, i+2, cells); err != nil {
			return err
		}
	}

	f.SetColWidth(sheetName, "B", "B", 24)
	f.SetColWidth(sheetName, "C", "D", 14)

	return f.Write(w)
}

// ProductXLSX writes one product's stock log.
func ProductXLSX(w io.Writer, view services.ProductView, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Date", "Type", "Quantity", "Remarks", "Stock"}
	if err := writeRow(f, sheetName, 1, toAny(headers)); err != nil {
		return err
	}

	row := 2
	for _, m := range view.Logs {
		cells := []any{
			m.Date.String(),
			string(m.Type),
			m.Quantity,
			m.Remarks,
			m.Balance,
		}
		if err := writeRow(f, sheetName, row, cells); err != nil {
			return err
		}
		row++
	}

	footer := []any{"Totals", "", fmt.Sprintf("in %d / out %d", view.Totals.In, view.Totals.Out), "", view.Totals.Stock}
	if err := writeRow(f, sheetName, row, footer); err != nil {
		return err
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "D", "D", 30)

	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	for i, v := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
