// Package memory is the default backend: a mutex-guarded in-process store
// with the same contract as the SQLite repository. It backs local runs and
// the handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cashbook/internal/core"
	"cashbook/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	entries    []core.Entry
	members    []core.Member
	products   []core.Product
	categories []string
	fields     []string
}

func New() *Store {
	return &Store{}
}

// NewSeeded creates a store preloaded with category and field names.
func NewSeeded(categories, fields []string) *Store {
	return &Store{
		categories: dedupe(categories),
		fields:     dedupe(fields),
	}
}

func (s *Store) Close() error { return nil }

// --- entries ---

func (s *Store) ListEntries(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Entry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Entry{}, core.ErrNotFound
}

func (s *Store) CreateEntry(_ context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) UpdateEntry(_ context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == e.ID {
			s.entries[i] = e
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// --- members ---

func (s *Store) ListMembers(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Member, len(s.members))
	for i, m := range s.members {
		out[i] = copyMember(m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetMember(_ context.Context, id string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ID == id {
			return copyMember(m), nil
		}
	}
	return core.Member{}, core.ErrNotFound
}

func (s *Store) CreateMember(_ context.Context, m core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append(s.members, copyMember(m))
	return nil
}

func (s *Store) UpdateMember(_ context.Context, m core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID == m.ID {
			s.members[i] = copyMember(m)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID == id {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) PutInstallment(_ context.Context, memberID string, idx int, slot core.InstallmentSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID == memberID {
			if s.members[i].Installments == nil {
				s.members[i].Installments = map[int]core.InstallmentSlot{}
			}
			s.members[i].Installments[idx] = slot
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) RemoveInstallment(_ context.Context, memberID string, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID == memberID {
			if _, ok := s.members[i].Installments[idx]; !ok {
				return core.ErrNotFound
			}
			delete(s.members[i].Installments, idx)
			return nil
		}
	}
	return core.ErrNotFound
}

// --- products ---

func (s *Store) ListProducts(_ context.Context) ([]core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Product, len(s.products))
	for i, p := range s.products {
		out[i] = copyProduct(p)
	}
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return copyProduct(p), nil
		}
	}
	return core.Product{}, core.ErrNotFound
}

func (s *Store) CreateProduct(_ context.Context, p core.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, copyProduct(p))
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, p core.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i].Name = p.Name
			s.products[i].Unit = p.Unit
			s.products[i].Remarks = p.Remarks
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) AppendLog(_ context.Context, productID string, m core.StockMovement) error {
	return s.mutateLogs(productID, func(logs []core.StockMovement) ([]core.StockMovement, error) {
		return append(logs, m), nil
	})
}

func (s *Store) UpdateLog(_ context.Context, productID string, seq int, m core.StockMovement) error {
	return s.mutateLogs(productID, func(logs []core.StockMovement) ([]core.StockMovement, error) {
		if seq < 0 || seq >= len(logs) {
			return nil, core.ErrNotFound
		}
		logs[seq] = m
		return logs, nil
	})
}

func (s *Store) DeleteLog(_ context.Context, productID string, seq int) error {
	return s.mutateLogs(productID, func(logs []core.StockMovement) ([]core.StockMovement, error) {
		if seq < 0 || seq >= len(logs) {
			return nil, core.ErrNotFound
		}
		return append(logs[:seq], logs[seq+1:]...), nil
	})
}

func (s *Store) mutateLogs(productID string, mutate func([]core.StockMovement) ([]core.StockMovement, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == productID {
			logs := make([]core.StockMovement, len(s.products[i].Logs))
			copy(logs, s.products[i].Logs)
			mutated, err := mutate(logs)
			if err != nil {
				return err
			}
			s.products[i].Logs = ledger.RecomputeBalances(mutated)
			return nil
		}
	}
	return core.ErrNotFound
}

// --- taxonomy ---

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

func (s *Store) AddCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.categories, err = addName(s.categories, name)
	return err
}

func (s *Store) ListFields(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out, nil
}

func (s *Store) AddField(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.fields, err = addName(s.fields, name)
	return err
}

func addName(list []string, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return list, core.ErrEmptyName
	}
	for _, existing := range list {
		if existing == name {
			return list, nil
		}
	}
	return append(list, name), nil
}

func copyMember(m core.Member) core.Member {
	out := m
	out.Installments = make(map[int]core.InstallmentSlot, len(m.Installments))
	for idx, slot := range m.Installments {
		out.Installments[idx] = slot
	}
	return out
}

func copyProduct(p core.Product) core.Product {
	out := p
	out.Logs = make([]core.StockMovement, len(p.Logs))
	copy(out.Logs, p.Logs)
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
