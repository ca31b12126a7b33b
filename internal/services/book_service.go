package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
	"cashbook/internal/ledger"
	"cashbook/internal/store"
)

// EntryPublisher is the async side channel entry mutations are announced
// on. The AMQP client satisfies it; tests use fakes.
type EntryPublisher interface {
	PublishEntrySync(ctx context.Context, entryID, op string) error
	Close() error
}

// BookService orchestrates cash book operations across storage and the
// sync publisher. Storage is the source of truth; publish failures are
// logged and never fail the request.
type BookService struct {
	store     store.Store
	publisher EntryPublisher
}

// NewBookService wires the service. publisher may be nil when no mirror
// is configured.
func NewBookService(st store.Store, publisher EntryPublisher) *BookService {
	return &BookService{
		store:     st,
		publisher: publisher,
	}
}

// LedgerView is the entry ledger after filtering, with running balances
// and the footer totals derived from the same filtered rows.
type LedgerView struct {
	Opening      decimal.Decimal
	Rows         []ledger.EntryRow
	CashIn       decimal.Decimal
	CashOut      decimal.Decimal
	NetCash      decimal.Decimal
	TotalExpense decimal.Decimal
}

// MemberView pairs a member with the derived installment figures.
type MemberView struct {
	core.Member
	TotalPaid decimal.Decimal
	Due       decimal.Decimal
	Advance   decimal.Decimal
}

// MembersView is the member table: the global column set plus one row per
// member.
type MembersView struct {
	Columns []int
	Members []MemberView
}

// ProductView pairs a product with its stock totals.
type ProductView struct {
	core.Product
	Totals ledger.StockTotals
}

// Summary is the book-wide dashboard figures.
type Summary struct {
	Opening           decimal.Decimal
	CashIn            decimal.Decimal
	CashOut           decimal.Decimal
	NetCash           decimal.Decimal
	Balance           decimal.Decimal
	TotalExpense      decimal.Decimal
	MemberCount       int
	TotalSubscription decimal.Decimal
	TotalPaid         decimal.Decimal
	TotalDue          decimal.Decimal
	ProductCount      int
}

// CreateEntry validates and stores a new entry, then announces it on the
// sync channel.
func (s *BookService) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	normalizeEntry(&e)
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.store.CreateEntry(ctx, e); err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	s.publish(ctx, e.ID, amqp.OpUpsert)
	return e, nil
}

// UpdateEntry replaces an existing entry, keeping its creation timestamp.
func (s *BookService) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	normalizeEntry(&e)
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	existing, err := s.store.GetEntry(ctx, e.ID)
	if err != nil {
		return core.Entry{}, err
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	s.publish(ctx, e.ID, amqp.OpUpsert)
	return e, nil
}

func (s *BookService) DeleteEntry(ctx context.Context, id string) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, amqp.OpDelete)
	return nil
}

func (s *BookService) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	return s.store.GetEntry(ctx, id)
}

// ListEntries returns entries matching the filter in chronological order.
func (s *BookService) ListEntries(ctx context.Context, f ledger.EntryFilter) ([]core.Entry, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return ledger.FilterEntries(entries, f), nil
}

// Ledger builds the running-balance view of the entries matching the
// filter. The opening balance always comes from the full member roster,
// while the rows and totals cover only the filtered entries, so narrowing
// the filter narrows the footer with it.
func (s *BookService) Ledger(ctx context.Context, f ledger.EntryFilter) (LedgerView, error) {
	var (
		entries []core.Entry
		members []core.Member
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.ListEntries(gctx)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		members, err = s.store.ListMembers(gctx)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return LedgerView{}, err
	}

	opening := ledger.OpeningBalance(members)
	filtered := ledger.FilterEntries(entries, f)
	rows := ledger.EntryRows(filtered, opening)
	in, out, net := ledger.CashTotals(filtered)

	return LedgerView{
		Opening:      opening,
		Rows:         rows,
		CashIn:       in,
		CashOut:      out,
		NetCash:      net,
		TotalExpense: ledger.TotalExpense(rows),
	}, nil
}

func (s *BookService) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Installments == nil {
		m.Installments = map[int]core.InstallmentSlot{}
	}
	if err := s.store.CreateMember(ctx, m); err != nil {
		return core.Member{}, fmt.Errorf("save member: %w", err)
	}
	return m, nil
}

func (s *BookService) UpdateMember(ctx context.Context, m core.Member) (core.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}

	// Installment slots are managed through the installment operations;
	// a member update keeps whatever slots are already stored.
	existing, err := s.store.GetMember(ctx, m.ID)
	if err != nil {
		return core.Member{}, err
	}
	m.Installments = existing.Installments

	if err := s.store.UpdateMember(ctx, m); err != nil {
		return core.Member{}, fmt.Errorf("update member: %w", err)
	}
	return m, nil
}

func (s *BookService) DeleteMember(ctx context.Context, id string) error {
	return s.store.DeleteMember(ctx, id)
}

// GetMember returns one member with derived figures against the current
// global column set.
func (s *BookService) GetMember(ctx context.Context, id string) (MemberView, error) {
	var (
		m       core.Member
		members []core.Member
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		m, err = s.store.GetMember(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.store.ListMembers(gctx)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return MemberView{}, err
	}

	return memberView(m, ledger.Columns(members)), nil
}

// Members returns the full member table with the global column set.
func (s *BookService) Members(ctx context.Context) (MembersView, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return MembersView{}, fmt.Errorf("list members: %w", err)
	}

	columns := ledger.Columns(members)
	view := MembersView{Columns: columns, Members: make([]MemberView, 0, len(members))}
	for _, m := range members {
		view.Members = append(view.Members, memberView(m, columns))
	}
	return view, nil
}

// InstallmentColumns returns the sorted union of slot indices in use.
func (s *BookService) InstallmentColumns(ctx context.Context) ([]int, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return ledger.Columns(members), nil
}

// PutInstallment records a payment into one slot. Index 0 means "next free
// column": the slot lands one past the highest index any member uses, so a
// new column opens for the whole table. Returns the index actually used.
func (s *BookService) PutInstallment(ctx context.Context, memberID string, idx int, slot core.InstallmentSlot) (int, error) {
	if idx < 0 {
		return 0, core.ErrInvalidSlotIndex
	}
	if slot.Amount.IsNegative() {
		return 0, core.ErrInvalidAmount
	}
	if err := slot.PaidOn.Validate(); err != nil {
		return 0, err
	}

	if idx == 0 {
		members, err := s.store.ListMembers(ctx)
		if err != nil {
			return 0, fmt.Errorf("list members: %w", err)
		}
		idx = ledger.NextIndex(ledger.Columns(members))
	}

	if err := s.store.PutInstallment(ctx, memberID, idx, slot); err != nil {
		return 0, err
	}
	return idx, nil
}

func (s *BookService) RemoveInstallment(ctx context.Context, memberID string, idx int) error {
	if idx < 1 {
		return core.ErrInvalidSlotIndex
	}
	return s.store.RemoveInstallment(ctx, memberID, idx)
}

func (s *BookService) CreateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return core.Product{}, fmt.Errorf("save product: %w", err)
	}
	return p, nil
}

// UpdateProduct edits the product's descriptive fields; its log is
// managed through the log operations.
func (s *BookService) UpdateProduct(ctx context.Context, p core.Product) (ProductView, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return ProductView{}, err
	}

	existing, err := s.store.GetProduct(ctx, p.ID)
	if err != nil {
		return ProductView{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.Logs = existing.Logs

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return ProductView{}, fmt.Errorf("update product: %w", err)
	}
	return ProductView{Product: p, Totals: ledger.Totals(p.Logs)}, nil
}

func (s *BookService) DeleteProduct(ctx context.Context, id string) error {
	return s.store.DeleteProduct(ctx, id)
}

// GetProduct returns one product with its ordered log and stock totals.
func (s *BookService) GetProduct(ctx context.Context, id string) (ProductView, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	return ProductView{Product: p, Totals: ledger.Totals(p.Logs)}, nil
}

// Products lists all products with their stock totals.
func (s *BookService) Products(ctx context.Context) ([]ProductView, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{Product: p, Totals: ledger.Totals(p.Logs)})
	}
	return views, nil
}

// AppendLog adds a stock movement and returns the product with every
// running balance recomputed.
func (s *BookService) AppendLog(ctx context.Context, productID string, m core.StockMovement) (ProductView, error) {
	if err := m.Validate(); err != nil {
		return ProductView{}, err
	}
	if err := s.store.AppendLog(ctx, productID, m); err != nil {
		return ProductView{}, err
	}
	return s.GetProduct(ctx, productID)
}

// UpdateLog rewrites one movement in place; later balances shift with it.
func (s *BookService) UpdateLog(ctx context.Context, productID string, seq int, m core.StockMovement) (ProductView, error) {
	if err := m.Validate(); err != nil {
		return ProductView{}, err
	}
	if err := s.store.UpdateLog(ctx, productID, seq, m); err != nil {
		return ProductView{}, err
	}
	return s.GetProduct(ctx, productID)
}

// DeleteLog removes one movement; the remaining rows renumber and their
// balances recompute.
func (s *BookService) DeleteLog(ctx context.Context, productID string, seq int) (ProductView, error) {
	if err := s.store.DeleteLog(ctx, productID, seq); err != nil {
		return ProductView{}, err
	}
	return s.GetProduct(ctx, productID)
}

func (s *BookService) Categories(ctx context.Context) ([]string, error) {
	return s.store.ListCategories(ctx)
}

func (s *BookService) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	return s.store.AddCategory(ctx, name)
}

func (s *BookService) Fields(ctx context.Context) ([]string, error) {
	return s.store.ListFields(ctx)
}

func (s *BookService) AddField(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	return s.store.AddField(ctx, name)
}

// Summarize computes the dashboard figures across the whole book.
func (s *BookService) Summarize(ctx context.Context) (Summary, error) {
	var (
		entries  []core.Entry
		members  []core.Member
		products []core.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.ListEntries(gctx)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		members, err = s.store.ListMembers(gctx)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.store.ListProducts(gctx)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	opening := ledger.OpeningBalance(members)
	rows := ledger.EntryRows(entries, opening)
	in, out, net := ledger.CashTotals(entries)

	balance := opening
	if len(rows) > 0 {
		balance = rows[len(rows)-1].Balance
	}

	columns := ledger.Columns(members)
	sum := Summary{
		Opening:           opening,
		CashIn:            in,
		CashOut:           out,
		NetCash:           net,
		Balance:           balance,
		TotalExpense:      ledger.TotalExpense(rows),
		MemberCount:       len(members),
		TotalSubscription: decimal.Zero,
		TotalPaid:         decimal.Zero,
		TotalDue:          decimal.Zero,
		ProductCount:      len(products),
	}
	for _, m := range members {
		sum.TotalSubscription = sum.TotalSubscription.Add(m.EffectiveSubscription())
		sum.TotalPaid = sum.TotalPaid.Add(ledger.TotalPaid(m, columns))
		sum.TotalDue = sum.TotalDue.Add(ledger.Due(m, columns))
	}
	return sum, nil
}

// Close closes storage and the publisher.
func (s *BookService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close book service: %v", errs)
	}
	return nil
}

func (s *BookService) publish(ctx context.Context, entryID, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntrySync(ctx, entryID, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"entry_id", entryID, "op", op, "error", err)
	}
}

func memberView(m core.Member, columns []int) MemberView {
	return MemberView{
		Member:    m,
		TotalPaid: ledger.TotalPaid(m, columns),
		Due:       ledger.Due(m, columns),
		Advance:   ledger.Advance(m, columns),
	}
}

func normalizeEntry(e *core.Entry) {
	e.Category = strings.TrimSpace(e.Category)
	e.Mode = strings.TrimSpace(e.Mode)
	e.Division = strings.TrimSpace(e.Division)
	e.Remarks = strings.TrimSpace(e.Remarks)
}
