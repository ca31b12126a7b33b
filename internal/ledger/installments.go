package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"cashbook/internal/core"
)

// Columns returns the union of installment indices present on any member,
// deduplicated and sorted ascending numerically. The installment table
// shows this same column set for every member, so the set must be
// recomputed whenever the member collection changes.
func Columns(members []core.Member) []int {
	seen := map[int]struct{}{}
	for _, m := range members {
		for idx := range m.Installments {
			seen[idx] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// NextIndex is the index a newly added installment column takes: one past
// the highest known index across ALL members, or 1 when none exist. Using
// the global set keeps every member's columns in lockstep.
func NextIndex(columns []int) int {
	if len(columns) == 0 {
		return 1
	}
	return columns[len(columns)-1] + 1
}

// TotalPaid sums the member's payments over exactly the globally known
// columns. An index the member never paid contributes zero.
func TotalPaid(m core.Member, columns []int) decimal.Decimal {
	total := decimal.Zero
	for _, idx := range columns {
		if slot, ok := m.Installments[idx]; ok {
			total = total.Add(slot.Amount)
		}
	}
	return total
}

// Due is the member's remaining obligation, clamped at zero. Overpayment
// is reported separately by Advance rather than as a negative due.
func Due(m core.Member, columns []int) decimal.Decimal {
	due := m.EffectiveSubscription().Sub(TotalPaid(m, columns))
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// Advance is the amount paid beyond the subscription target, zero when the
// member still owes.
func Advance(m core.Member, columns []int) decimal.Decimal {
	adv := TotalPaid(m, columns).Sub(m.EffectiveSubscription())
	if adv.IsNegative() {
		return decimal.Zero
	}
	return adv
}
