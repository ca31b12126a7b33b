package ledger

import (
	"testing"

	"cashbook/internal/core"
)

func mv(typ core.MovementType, qty int64) core.StockMovement {
	return core.StockMovement{Type: typ, Quantity: qty, Date: core.NewDate(2025, 4, 1)}
}

func TestStockTotals(t *testing.T) {
	logs := []core.StockMovement{
		mv(core.MovementIn, 50),
		mv(core.MovementOut, 20),
		mv(core.MovementIn, 5),
	}
	got := Totals(logs)
	if got.In != 55 || got.Out != 20 || got.Stock != 35 {
		t.Fatalf("totals = %+v; want In=55 Out=20 Stock=35", got)
	}
}

func TestStockTotalsEmpty(t *testing.T) {
	got := Totals(nil)
	if got.In != 0 || got.Out != 0 || got.Stock != 0 {
		t.Fatalf("totals of empty log = %+v; want zeros", got)
	}
}

func TestRecomputeBalances(t *testing.T) {
	logs := []core.StockMovement{
		mv(core.MovementIn, 50),
		mv(core.MovementOut, 20),
		mv(core.MovementIn, 5),
	}
	out := RecomputeBalances(logs)
	want := []int64{50, 30, 35}
	for i, w := range want {
		if out[i].Balance != w {
			t.Fatalf("balance[%d] = %d; want %d", i, out[i].Balance, w)
		}
	}
	// Input left untouched.
	for i := range logs {
		if logs[i].Balance != 0 {
			t.Fatalf("input mutated at %d", i)
		}
	}
	// Stock == last balance when the log is contiguous.
	if totals := Totals(logs); totals.Stock != out[len(out)-1].Balance {
		t.Fatalf("stock %d != last balance %d", totals.Stock, out[len(out)-1].Balance)
	}
}

func TestRecomputeBalancesCanGoNegative(t *testing.T) {
	out := RecomputeBalances([]core.StockMovement{mv(core.MovementOut, 10)})
	if out[0].Balance != -10 {
		t.Fatalf("balance = %d; want -10", out[0].Balance)
	}
}
