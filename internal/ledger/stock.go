package ledger

import "cashbook/internal/core"

// StockTotals aggregates a product's movement log.
type StockTotals struct {
	In    int64
	Out   int64
	Stock int64
}

// Totals sums in and out quantities over the log. Stock = In − Out, which
// equals the last movement's balance when balances are contiguous.
func Totals(logs []core.StockMovement) StockTotals {
	var t StockTotals
	for _, m := range logs {
		switch m.Type {
		case core.MovementIn:
			t.In += m.Quantity
		case core.MovementOut:
			t.Out += m.Quantity
		}
	}
	t.Stock = t.In - t.Out
	return t
}

// RecomputeBalances returns a copy of the log with every movement's
// running balance rewritten from a zero start. Storage calls this after
// any append, in-place edit or delete of a product's log.
func RecomputeBalances(logs []core.StockMovement) []core.StockMovement {
	out := make([]core.StockMovement, len(logs))
	var balance int64
	for i, m := range logs {
		balance += movementDelta(m)
		m.Balance = balance
		out[i] = m
	}
	return out
}

func movementDelta(m core.StockMovement) int64 {
	if m.Type == core.MovementOut {
		return -m.Quantity
	}
	return m.Quantity
}
