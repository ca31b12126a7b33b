package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
	"cashbook/internal/ledger"
	"cashbook/internal/storage/memory"
)

type fakePublisher struct {
	published []string // "id:op"
	err       error
	closed    bool
}

func (f *fakePublisher) PublishEntrySync(_ context.Context, entryID, op string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, entryID+":"+op)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newService(t *testing.T) (*BookService, *memory.Store, *fakePublisher) {
	t.Helper()
	st := memory.New()
	pub := &fakePublisher{}
	return NewBookService(st, pub), st, pub
}

func entry(date core.Date, amount int64, category string) core.Entry {
	return core.Entry{
		Date:      date,
		Amount:    decimal.NewFromInt(amount),
		Category:  category,
		Direction: core.DirectionOut,
		Mode:      "Cash",
	}
}

func TestCreateEntryAssignsIDAndPublishes(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newService(t)

	created, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 1, 5), 100, "Materials"))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if created.ID == "" {
		t.Error("expected a generated ID")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	stored, err := st.GetEntry(ctx, created.ID)
	if err != nil {
		t.Fatalf("get stored entry: %v", err)
	}
	if !stored.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("stored amount = %s, want 100", stored.Amount)
	}

	want := created.ID + ":" + amqp.OpUpsert
	if len(pub.published) != 1 || pub.published[0] != want {
		t.Errorf("published = %v, want [%s]", pub.published, want)
	}
}

func TestCreateEntryRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t)

	bad := entry(core.NewDate(2025, 1, 5), 100, "")
	if _, err := svc.CreateEntry(ctx, bad); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if len(pub.published) != 0 {
		t.Errorf("nothing should be published for a rejected entry, got %v", pub.published)
	}
}

func TestCreateEntrySurvivesPublishFailure(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewBookService(st, pub)

	created, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 1, 5), 100, "Materials"))
	if err != nil {
		t.Fatalf("create should succeed when only publish fails: %v", err)
	}
	if _, err := st.GetEntry(ctx, created.ID); err != nil {
		t.Errorf("entry should be stored despite publish failure: %v", err)
	}
}

func TestUpdateEntryKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	created, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 1, 5), 100, "Materials"))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	changed := created
	changed.Amount = decimal.NewFromInt(250)
	updated, err := svc.UpdateEntry(ctx, changed)
	if err != nil {
		t.Fatalf("update entry: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v vs %v", updated.CreatedAt, created.CreatedAt)
	}
	if !updated.Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("amount = %s, want 250", updated.Amount)
	}
}

func TestDeleteEntryPublishesDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t)

	created, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 1, 5), 100, "Materials"))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := svc.DeleteEntry(ctx, created.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}

	want := created.ID + ":" + amqp.OpDelete
	if pub.published[len(pub.published)-1] != want {
		t.Errorf("last published = %s, want %s", pub.published[len(pub.published)-1], want)
	}

	if err := svc.DeleteEntry(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestLedgerRunningBalancesAndFooter(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	// Two installments of 250 give an opening balance of 500.
	m, err := svc.CreateMember(ctx, core.Member{Name: "Karim"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	for idx := 1; idx <= 2; idx++ {
		slot := core.InstallmentSlot{PaidOn: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(250)}
		if _, err := svc.PutInstallment(ctx, m.ID, idx, slot); err != nil {
			t.Fatalf("put installment %d: %v", idx, err)
		}
	}

	if _, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 2, 1), 100, "Materials")); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 2, 2), 30, "Labor")); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	view, err := svc.Ledger(ctx, ledger.EntryFilter{})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}

	if !view.Opening.Equal(decimal.NewFromInt(500)) {
		t.Errorf("opening = %s, want 500", view.Opening)
	}
	if len(view.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(view.Rows))
	}
	wantBalances := []int64{400, 370}
	for i, want := range wantBalances {
		if !view.Rows[i].Balance.Equal(decimal.NewFromInt(want)) {
			t.Errorf("row %d balance = %s, want %d", i, view.Rows[i].Balance, want)
		}
	}
	if !view.TotalExpense.Equal(decimal.NewFromInt(130)) {
		t.Errorf("total expense = %s, want 130", view.TotalExpense)
	}
}

func TestLedgerFilterScopesTotals(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	if _, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 2, 1), 100, "Materials")); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 2, 2), 30, "Labor")); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	view, err := svc.Ledger(ctx, ledger.EntryFilter{Category: "Labor"})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(view.Rows) != 1 {
		t.Fatalf("expected 1 filtered row, got %d", len(view.Rows))
	}
	if !view.TotalExpense.Equal(decimal.NewFromInt(30)) {
		t.Errorf("filtered total expense = %s, want 30", view.TotalExpense)
	}
	if !view.CashOut.Equal(decimal.NewFromInt(30)) {
		t.Errorf("filtered cash out = %s, want 30", view.CashOut)
	}
}

func TestPutInstallmentZeroIndexOpensNextColumn(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	a, err := svc.CreateMember(ctx, core.Member{Name: "A"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	b, err := svc.CreateMember(ctx, core.Member{Name: "B"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	slot := core.InstallmentSlot{PaidOn: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(50)}
	if _, err := svc.PutInstallment(ctx, a.ID, 3, slot); err != nil {
		t.Fatalf("put installment: %v", err)
	}

	// Next free column is global, so B lands at 4 even with no slots of
	// its own.
	idx, err := svc.PutInstallment(ctx, b.ID, 0, slot)
	if err != nil {
		t.Fatalf("put installment: %v", err)
	}
	if idx != 4 {
		t.Errorf("next index = %d, want 4", idx)
	}

	columns, err := svc.InstallmentColumns(ctx)
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if len(columns) != 2 || columns[0] != 3 || columns[1] != 4 {
		t.Errorf("columns = %v, want [3 4]", columns)
	}
}

func TestUpdateMemberKeepsInstallments(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	m, err := svc.CreateMember(ctx, core.Member{Name: "Karim"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	slot := core.InstallmentSlot{PaidOn: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(50)}
	if _, err := svc.PutInstallment(ctx, m.ID, 1, slot); err != nil {
		t.Fatalf("put installment: %v", err)
	}

	m.Phone = "0123456789"
	updated, err := svc.UpdateMember(ctx, m)
	if err != nil {
		t.Fatalf("update member: %v", err)
	}
	if len(updated.Installments) != 1 {
		t.Errorf("installments lost on update: %v", updated.Installments)
	}
}

func TestMemberDueClampsAndReportsAdvance(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	m, err := svc.CreateMember(ctx, core.Member{
		Name:         "Karim",
		Subscription: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	slot := core.InstallmentSlot{PaidOn: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(150)}
	if _, err := svc.PutInstallment(ctx, m.ID, 1, slot); err != nil {
		t.Fatalf("put installment: %v", err)
	}

	view, err := svc.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if !view.Due.IsZero() {
		t.Errorf("due = %s, want 0", view.Due)
	}
	if !view.Advance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("advance = %s, want 50", view.Advance)
	}
}

func TestStockLogLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	p, err := svc.CreateProduct(ctx, core.Product{Name: "Cement", Unit: "bag"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	mk := func(typ core.MovementType, qty int64) core.StockMovement {
		return core.StockMovement{Type: typ, Quantity: qty, Date: core.NewDate(2025, 3, 1)}
	}

	if _, err := svc.AppendLog(ctx, p.ID, mk(core.MovementIn, 50)); err != nil {
		t.Fatalf("append log: %v", err)
	}
	if _, err := svc.AppendLog(ctx, p.ID, mk(core.MovementOut, 20)); err != nil {
		t.Fatalf("append log: %v", err)
	}
	view, err := svc.AppendLog(ctx, p.ID, mk(core.MovementIn, 5))
	if err != nil {
		t.Fatalf("append log: %v", err)
	}

	wantBalances := []int64{50, 30, 35}
	for i, want := range wantBalances {
		if view.Logs[i].Balance != want {
			t.Errorf("log %d balance = %d, want %d", i, view.Logs[i].Balance, want)
		}
	}
	if view.Totals.In != 55 || view.Totals.Out != 20 || view.Totals.Stock != 35 {
		t.Errorf("totals = %+v, want in 55 out 20 stock 35", view.Totals)
	}

	if _, err := svc.AppendLog(ctx, p.ID, mk(core.MovementIn, 0)); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("zero quantity should be rejected, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	m, err := svc.CreateMember(ctx, core.Member{Name: "Karim", Subscription: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	slot := core.InstallmentSlot{PaidOn: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(400)}
	if _, err := svc.PutInstallment(ctx, m.ID, 1, slot); err != nil {
		t.Fatalf("put installment: %v", err)
	}
	if _, err := svc.CreateEntry(ctx, entry(core.NewDate(2025, 2, 1), 150, "Materials")); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	sum, err := svc.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !sum.Opening.Equal(decimal.NewFromInt(400)) {
		t.Errorf("opening = %s, want 400", sum.Opening)
	}
	if !sum.Balance.Equal(decimal.NewFromInt(250)) {
		t.Errorf("balance = %s, want 250", sum.Balance)
	}
	if !sum.TotalExpense.Equal(decimal.NewFromInt(150)) {
		t.Errorf("total expense = %s, want 150", sum.TotalExpense)
	}
	if sum.MemberCount != 1 {
		t.Errorf("member count = %d, want 1", sum.MemberCount)
	}
	if !sum.TotalDue.Equal(decimal.NewFromInt(600)) {
		t.Errorf("total due = %s, want 600", sum.TotalDue)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	svc, _, pub := newService(t)
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !pub.closed {
		t.Error("publisher not closed")
	}
}
