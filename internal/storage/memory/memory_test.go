package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"cashbook/internal/core"
)

func TestEntryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	e := core.Entry{
		ID:        "e1",
		Date:      core.NewDate(2025, 5, 1),
		Amount:    decimal.NewFromInt(100),
		Category:  "Cement",
		Direction: core.DirectionOut,
	}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetEntry(ctx, "e1")
	if err != nil || got.Category != "Cement" {
		t.Fatalf("get: %v %+v", err, got)
	}

	e.Remarks = "updated"
	if err := s.UpdateEntry(ctx, e); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetEntry(ctx, "e1")
	if got.Remarks != "updated" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := s.DeleteEntry(ctx, "e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetEntry(ctx, "e1"); err != core.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteEntry(ctx, "e1"); err != core.ErrNotFound {
		t.Fatalf("double delete expected not found, got %v", err)
	}
}

func TestListEntriesChronological(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateEntry(ctx, core.Entry{ID: "b", Date: core.NewDate(2025, 5, 2)})
	_ = s.CreateEntry(ctx, core.Entry{ID: "a", Date: core.NewDate(2025, 5, 1)})

	entries, err := s.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries[0].ID != "a" || entries[1].ID != "b" {
		t.Fatalf("not chronological: %s, %s", entries[0].ID, entries[1].ID)
	}
}

func TestInstallmentPutAndRemove(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateMember(ctx, core.Member{ID: "m1", Name: "Karim"})

	slot := core.InstallmentSlot{PaidOn: core.NewDate(2025, 1, 5), Amount: decimal.NewFromInt(50000)}
	if err := s.PutInstallment(ctx, "m1", 1, slot); err != nil {
		t.Fatalf("put: %v", err)
	}
	m, _ := s.GetMember(ctx, "m1")
	if !m.Installments[1].Amount.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("slot missing: %+v", m.Installments)
	}

	if err := s.RemoveInstallment(ctx, "m1", 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	m, _ = s.GetMember(ctx, "m1")
	if len(m.Installments) != 0 {
		t.Fatalf("slot should be gone: %+v", m.Installments)
	}
	if err := s.RemoveInstallment(ctx, "m1", 1); err != core.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.PutInstallment(ctx, "nope", 1, slot); err != core.ErrNotFound {
		t.Fatalf("expected not found for unknown member, got %v", err)
	}
}

func TestGetMemberReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateMember(ctx, core.Member{ID: "m1", Name: "Karim",
		Installments: map[int]core.InstallmentSlot{1: {Amount: decimal.NewFromInt(10)}}})

	m, _ := s.GetMember(ctx, "m1")
	delete(m.Installments, 1)

	again, _ := s.GetMember(ctx, "m1")
	if len(again.Installments) != 1 {
		t.Fatalf("store state leaked through returned copy")
	}
}

func TestProductLogBalances(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateProduct(ctx, core.Product{ID: "p1", Name: "Rod", Unit: "ton"})

	mv := func(typ core.MovementType, qty int64) core.StockMovement {
		return core.StockMovement{Type: typ, Quantity: qty, Date: core.NewDate(2025, 4, 1)}
	}
	_ = s.AppendLog(ctx, "p1", mv(core.MovementIn, 50))
	_ = s.AppendLog(ctx, "p1", mv(core.MovementOut, 20))
	_ = s.AppendLog(ctx, "p1", mv(core.MovementIn, 5))

	p, _ := s.GetProduct(ctx, "p1")
	want := []int64{50, 30, 35}
	for i, w := range want {
		if p.Logs[i].Balance != w {
			t.Fatalf("balance[%d] = %d; want %d", i, p.Logs[i].Balance, w)
		}
	}

	// Deleting the middle movement renumbers and recomputes.
	if err := s.DeleteLog(ctx, "p1", 1); err != nil {
		t.Fatalf("delete log: %v", err)
	}
	p, _ = s.GetProduct(ctx, "p1")
	if len(p.Logs) != 2 || p.Logs[1].Balance != 55 {
		t.Fatalf("after delete: %+v", p.Logs)
	}

	if err := s.UpdateLog(ctx, "p1", 0, mv(core.MovementIn, 10)); err != nil {
		t.Fatalf("update log: %v", err)
	}
	p, _ = s.GetProduct(ctx, "p1")
	if p.Logs[1].Balance != 15 {
		t.Fatalf("after update: %+v", p.Logs)
	}

	if err := s.UpdateLog(ctx, "p1", 9, mv(core.MovementIn, 1)); err != core.ErrNotFound {
		t.Fatalf("expected not found for bad seq, got %v", err)
	}
}

func TestTaxonomyDedupe(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded([]string{"Cement", "Cement", " "}, nil)

	cats, _ := s.ListCategories(ctx)
	if len(cats) != 1 {
		t.Fatalf("seed dedupe failed: %v", cats)
	}
	_ = s.AddCategory(ctx, "Cement")
	_ = s.AddCategory(ctx, "Labor")
	cats, _ = s.ListCategories(ctx)
	if len(cats) != 2 {
		t.Fatalf("add dedupe failed: %v", cats)
	}
	if err := s.AddCategory(ctx, "  "); err != core.ErrEmptyName {
		t.Fatalf("expected empty name error, got %v", err)
	}
}
