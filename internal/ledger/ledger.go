// Package ledger derives running balances and cumulative totals from
// ordered monetary events. Every aggregation here is a pure single pass
// over its input: callers re-run it from scratch after any filter change
// or mutation instead of patching previous results.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"cashbook/internal/core"
)

// Line is the derived state after one event: the cumulative total of all
// amounts seen so far and the balance remaining from the opening amount.
type Line struct {
	Cumulative decimal.Decimal
	Balance    decimal.Decimal
}

// Running computes, for each amount in input order, the inclusive running
// sum and opening − sum. It never mutates its input and returns an output
// of exactly the same length; an empty input yields an empty output.
func Running(amounts []decimal.Decimal, opening decimal.Decimal) []Line {
	out := make([]Line, len(amounts))
	sum := decimal.Zero
	for i, a := range amounts {
		sum = sum.Add(a)
		out[i] = Line{Cumulative: sum, Balance: opening.Sub(sum)}
	}
	return out
}

// EntryRow is one cash book row with its derived running figures.
type EntryRow struct {
	core.Entry
	Balance decimal.Decimal
	Expense decimal.Decimal
}

// EntryRows aggregates the given entries (already filtered and in display
// order) against an opening balance. Every entry's amount is treated as an
// expense against the opening balance regardless of direction; this
// matches the book's final running-balance view, where the opening amount
// is the members' pledged cash and entries draw it down.
func EntryRows(entries []core.Entry, opening decimal.Decimal) []EntryRow {
	amounts := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		amounts[i] = e.Amount
	}
	lines := Running(amounts, opening)
	rows := make([]EntryRow, len(entries))
	for i, e := range entries {
		rows[i] = EntryRow{Entry: e, Balance: lines[i].Balance, Expense: lines[i].Cumulative}
	}
	return rows
}

// TotalExpense is the footer total of an aggregated view: the final
// cumulative expense, zero when the view is empty.
func TotalExpense(rows []EntryRow) decimal.Decimal {
	if len(rows) == 0 {
		return decimal.Zero
	}
	return rows[len(rows)-1].Expense
}

// OpeningBalance sums every member's paid installments. This is the cash
// the running-balance view starts from.
func OpeningBalance(members []core.Member) decimal.Decimal {
	total := decimal.Zero
	for _, m := range members {
		for _, slot := range m.Installments {
			total = total.Add(slot.Amount)
		}
	}
	return total
}

// CashTotals sums entries by direction for the dashboard summary cards.
func CashTotals(entries []core.Entry) (in, out, net decimal.Decimal) {
	in, out = decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Direction {
		case core.DirectionIn:
			in = in.Add(e.Amount)
		case core.DirectionOut:
			out = out.Add(e.Amount)
		}
	}
	return in, out, in.Sub(out)
}

// EntryFilter selects entries before aggregation. Running totals are
// filter-scoped: the filtered subset is aggregated, never a precomputed
// global ledger sliced afterwards.
type EntryFilter struct {
	Search    string // matches remarks (case-insensitive) or amount text
	Category  string
	Direction core.Direction
	Mode      string
	Division  string
	Date      core.Date
}

// IsZero reports whether the filter selects everything.
func (f EntryFilter) IsZero() bool {
	return f.Search == "" && f.Category == "" && f.Direction == "" &&
		f.Mode == "" && f.Division == "" && f.Date.IsZero()
}

// Match reports whether one entry passes the filter.
func (f EntryFilter) Match(e core.Entry) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Remarks), needle) &&
			!strings.Contains(e.Amount.String(), f.Search) {
			return false
		}
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.Mode != "" && e.Mode != f.Mode {
		return false
	}
	if f.Division != "" && e.Division != f.Division {
		return false
	}
	if !f.Date.IsZero() && e.Date.String() != f.Date.String() {
		return false
	}
	return true
}

// FilterEntries returns the entries passing f, preserving input order.
func FilterEntries(entries []core.Entry, f EntryFilter) []core.Entry {
	if f.IsZero() {
		out := make([]core.Entry, len(entries))
		copy(out, entries)
		return out
	}
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
