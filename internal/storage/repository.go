package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cashbook/internal/core"
	"cashbook/internal/ledger"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339
)

// SQLiteRepository implements store.Store on a single SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- entries ---

const entryColumns = `id, occurred_on, occurred_time, amount, category, direction,
	mode, division, details, remarks, contact, bill_no, created_at, updated_at`

func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY occurred_on, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	return e, err
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.String(), e.Time, e.Amount.String(), e.Category, string(e.Direction),
		e.Mode, e.Division, e.Details, e.Remarks, e.Contact, e.BillNo,
		e.CreatedAt.Format(tsLayout), e.UpdatedAt.Format(tsLayout))
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	slog.InfoContext(ctx, "Entry saved", "id", e.ID, "amount", e.Amount.String(), "direction", e.Direction)
	return nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.Entry) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET occurred_on = ?, occurred_time = ?, amount = ?, category = ?,
			direction = ?, mode = ?, division = ?, details = ?, remarks = ?, contact = ?,
			bill_no = ?, updated_at = ? WHERE id = ?`,
		e.Date.String(), e.Time, e.Amount.String(), e.Category, string(e.Direction),
		e.Mode, e.Division, e.Details, e.Remarks, e.Contact, e.BillNo,
		e.UpdatedAt.Format(tsLayout), e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e                    core.Entry
		occurredOn           string
		amount               string
		direction            string
		createdAt, updatedAt string
	)
	err := row.Scan(&e.ID, &occurredOn, &e.Time, &amount, &e.Category, &direction,
		&e.Mode, &e.Division, &e.Details, &e.Remarks, &e.Contact, &e.BillNo,
		&createdAt, &updatedAt)
	if err != nil {
		return core.Entry{}, err
	}
	if d, perr := core.ParseDate(occurredOn); perr == nil {
		e.Date = d
	}
	// Coerce, never fail: one malformed stored amount must not take the
	// whole ledger down with it.
	e.Amount = core.CoerceAmount(amount)
	e.Direction = core.Direction(direction)
	if t, perr := time.Parse(tsLayout, createdAt); perr == nil {
		e.CreatedAt = t
	}
	if t, perr := time.Parse(tsLayout, updatedAt); perr == nil {
		e.UpdatedAt = t
	}
	return e, nil
}

// --- members ---

func (r *SQLiteRepository) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, phone, email, subscription FROM members ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	index := map[string]int{}
	for rows.Next() {
		var m core.Member
		var subscription string
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone, &m.Email, &subscription); err != nil {
			return nil, err
		}
		m.Subscription = core.CoerceAmount(subscription)
		m.Installments = map[int]core.InstallmentSlot{}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slots, err := r.db.QueryContext(ctx,
		`SELECT member_id, idx, paid_on, amount, details FROM installments`)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer slots.Close()

	for slots.Next() {
		var memberID, paidOn, amount, details string
		var idx int
		if err := slots.Scan(&memberID, &idx, &paidOn, &amount, &details); err != nil {
			return nil, err
		}
		i, ok := index[memberID]
		if !ok {
			continue
		}
		slot := core.InstallmentSlot{Amount: core.CoerceAmount(amount), Details: details}
		if d, perr := core.ParseDate(paidOn); perr == nil {
			slot.PaidOn = d
		}
		out[i].Installments[idx] = slot
	}
	return out, slots.Err()
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (core.Member, error) {
	var m core.Member
	var subscription string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone, email, subscription FROM members WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Phone, &m.Email, &subscription)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.ErrNotFound
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get member: %w", err)
	}
	m.Subscription = core.CoerceAmount(subscription)
	m.Installments = map[int]core.InstallmentSlot{}

	rows, err := r.db.QueryContext(ctx,
		`SELECT idx, paid_on, amount, details FROM installments WHERE member_id = ?`, id)
	if err != nil {
		return core.Member{}, fmt.Errorf("get member installments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var idx int
		var paidOn, amount, details string
		if err := rows.Scan(&idx, &paidOn, &amount, &details); err != nil {
			return core.Member{}, err
		}
		slot := core.InstallmentSlot{Amount: core.CoerceAmount(amount), Details: details}
		if d, perr := core.ParseDate(paidOn); perr == nil {
			slot.PaidOn = d
		}
		m.Installments[idx] = slot
	}
	return m, rows.Err()
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create member: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO members (id, name, phone, email, subscription) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Phone, m.Email, m.Subscription.String()); err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	if err := replaceInstallments(ctx, tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) UpdateMember(ctx context.Context, m core.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update member: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE members SET name = ?, phone = ?, email = ?, subscription = ? WHERE id = ?`,
		m.Name, m.Phone, m.Email, m.Subscription.String(), m.ID)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE member_id = ?`, m.ID); err != nil {
		return fmt.Errorf("clear installments: %w", err)
	}
	if err := replaceInstallments(ctx, tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceInstallments(ctx context.Context, tx *sql.Tx, m core.Member) error {
	for idx, slot := range m.Installments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO installments (member_id, idx, paid_on, amount, details) VALUES (?, ?, ?, ?, ?)`,
			m.ID, idx, slot.PaidOn.String(), slot.Amount.String(), slot.Details); err != nil {
			return fmt.Errorf("insert installment %d: %w", idx, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteMember(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) PutInstallment(ctx context.Context, memberID string, idx int, slot core.InstallmentSlot) error {
	if err := r.requireMember(ctx, memberID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO installments (member_id, idx, paid_on, amount, details) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (member_id, idx) DO UPDATE SET paid_on = excluded.paid_on,
			amount = excluded.amount, details = excluded.details`,
		memberID, idx, slot.PaidOn.String(), slot.Amount.String(), slot.Details)
	if err != nil {
		return fmt.Errorf("put installment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveInstallment(ctx context.Context, memberID string, idx int) error {
	if err := r.requireMember(ctx, memberID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM installments WHERE member_id = ? AND idx = ?`, memberID, idx)
	if err != nil {
		return fmt.Errorf("remove installment: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) requireMember(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM members WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check member: %w", err)
	}
	return nil
}

// --- products ---

func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, unit, remarks, created_at FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []core.Product
	index := map[string]int{}
	for rows.Next() {
		var p core.Product
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit, &p.Remarks, &createdAt); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(tsLayout, createdAt); perr == nil {
			p.CreatedAt = t
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logs, err := r.db.QueryContext(ctx,
		`SELECT product_id, type, quantity, occurred_on, remarks, balance
		 FROM product_logs ORDER BY product_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("list product logs: %w", err)
	}
	defer logs.Close()
	for logs.Next() {
		var productID, typ, occurredOn, remarks string
		var quantity, balance int64
		if err := logs.Scan(&productID, &typ, &quantity, &occurredOn, &remarks, &balance); err != nil {
			return nil, err
		}
		i, ok := index[productID]
		if !ok {
			continue
		}
		m := core.StockMovement{Type: core.MovementType(typ), Quantity: quantity, Remarks: remarks, Balance: balance}
		if d, perr := core.ParseDate(occurredOn); perr == nil {
			m.Date = d
		}
		out[i].Logs = append(out[i].Logs, m)
	}
	return out, logs.Err()
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, id string) (core.Product, error) {
	var p core.Product
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, unit, remarks, created_at FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Unit, &p.Remarks, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Product{}, core.ErrNotFound
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("get product: %w", err)
	}
	if t, perr := time.Parse(tsLayout, createdAt); perr == nil {
		p.CreatedAt = t
	}
	p.Logs, err = r.productLogs(ctx, id)
	return p, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRepository) productLogs(ctx context.Context, productID string) ([]core.StockMovement, error) {
	return productLogs(ctx, r.db, productID)
}

func productLogs(ctx context.Context, q querier, productID string) ([]core.StockMovement, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT type, quantity, occurred_on, remarks, balance
		 FROM product_logs WHERE product_id = ? ORDER BY seq`, productID)
	if err != nil {
		return nil, fmt.Errorf("get product logs: %w", err)
	}
	defer rows.Close()

	var out []core.StockMovement
	for rows.Next() {
		var typ, occurredOn, remarks string
		var quantity, balance int64
		if err := rows.Scan(&typ, &quantity, &occurredOn, &remarks, &balance); err != nil {
			return nil, err
		}
		m := core.StockMovement{Type: core.MovementType(typ), Quantity: quantity, Remarks: remarks, Balance: balance}
		if d, perr := core.ParseDate(occurredOn); perr == nil {
			m.Date = d
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateProduct(ctx context.Context, p core.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, name, unit, remarks, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Unit, p.Remarks, p.CreatedAt.Format(tsLayout))
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateProduct(ctx context.Context, p core.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, unit = ?, remarks = ? WHERE id = ?`,
		p.Name, p.Unit, p.Remarks, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) AppendLog(ctx context.Context, productID string, m core.StockMovement) error {
	return r.mutateLogs(ctx, productID, func(logs []core.StockMovement) ([]core.StockMovement, error) {
		return append(logs, m), nil
	})
}

func (r *SQLiteRepository) UpdateLog(ctx context.Context, productID string, seq int, m core.StockMovement) error {
	return r.mutateLogs(ctx, productID, func(logs []core.StockMovement) ([]core.StockMovement, error) {
		if seq < 0 || seq >= len(logs) {
			return nil, core.ErrNotFound
		}
		logs[seq] = m
		return logs, nil
	})
}

func (r *SQLiteRepository) DeleteLog(ctx context.Context, productID string, seq int) error {
	return r.mutateLogs(ctx, productID, func(logs []core.StockMovement) ([]core.StockMovement, error) {
		if seq < 0 || seq >= len(logs) {
			return nil, core.ErrNotFound
		}
		return append(logs[:seq], logs[seq+1:]...), nil
	})
}

// mutateLogs rewrites a product's whole log inside one transaction so
// sequences stay contiguous and every running balance is fresh.
func (r *SQLiteRepository) mutateLogs(ctx context.Context, productID string, mutate func([]core.StockMovement) ([]core.StockMovement, error)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin log mutation: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, productID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}

	logs, err := productLogs(ctx, tx, productID)
	if err != nil {
		return err
	}
	mutated, err := mutate(logs)
	if err != nil {
		return err
	}
	mutated = ledger.RecomputeBalances(mutated)

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_logs WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("clear product logs: %w", err)
	}
	for seq, m := range mutated {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_logs (product_id, seq, type, quantity, occurred_on, remarks, balance)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			productID, seq, string(m.Type), m.Quantity, m.Date.String(), m.Remarks, m.Balance); err != nil {
			return fmt.Errorf("insert product log %d: %w", seq, err)
		}
	}
	return tx.Commit()
}

// --- taxonomy ---

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	return r.listNames(ctx, "categories")
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, name string) error {
	return r.addName(ctx, "categories", name)
}

func (r *SQLiteRepository) ListFields(ctx context.Context) ([]string, error) {
	return r.listNames(ctx, "fields")
}

func (r *SQLiteRepository) AddField(ctx context.Context, name string) error {
	return r.addName(ctx, "fields", name)
}

func (r *SQLiteRepository) listNames(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) addName(ctx context.Context, table, name string) error {
	if name == "" {
		return core.ErrEmptyName
	}
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO `+table+` (name) VALUES (?)`, name)
	if err != nil {
		return fmt.Errorf("add to %s: %w", table, err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
