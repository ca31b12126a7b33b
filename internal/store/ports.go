// Package store declares the persistence ports the HTTP layer and workers
// depend on. SQLite and the in-memory backend both satisfy Store.
package store

import (
	"context"

	"cashbook/internal/core"
)

type (
	EntryStore interface {
		ListEntries(ctx context.Context) ([]core.Entry, error)
		GetEntry(ctx context.Context, id string) (core.Entry, error)
		CreateEntry(ctx context.Context, e core.Entry) error
		UpdateEntry(ctx context.Context, e core.Entry) error
		DeleteEntry(ctx context.Context, id string) error
	}

	MemberStore interface {
		ListMembers(ctx context.Context) ([]core.Member, error)
		GetMember(ctx context.Context, id string) (core.Member, error)
		CreateMember(ctx context.Context, m core.Member) error
		UpdateMember(ctx context.Context, m core.Member) error
		DeleteMember(ctx context.Context, id string) error
		// PutInstallment creates or replaces one installment slot.
		PutInstallment(ctx context.Context, memberID string, idx int, slot core.InstallmentSlot) error
		// RemoveInstallment unsets one slot; the member record survives.
		RemoveInstallment(ctx context.Context, memberID string, idx int) error
	}

	ProductStore interface {
		ListProducts(ctx context.Context) ([]core.Product, error)
		// GetProduct returns the product with its full ordered log.
		GetProduct(ctx context.Context, id string) (core.Product, error)
		CreateProduct(ctx context.Context, p core.Product) error
		UpdateProduct(ctx context.Context, p core.Product) error
		DeleteProduct(ctx context.Context, id string) error
		// Log mutations renumber sequences and recompute every running
		// balance before returning.
		AppendLog(ctx context.Context, productID string, m core.StockMovement) error
		UpdateLog(ctx context.Context, productID string, seq int, m core.StockMovement) error
		DeleteLog(ctx context.Context, productID string, seq int) error
	}

	TaxonomyStore interface {
		ListCategories(ctx context.Context) ([]string, error)
		AddCategory(ctx context.Context, name string) error
		ListFields(ctx context.Context) ([]string, error)
		AddField(ctx context.Context, name string) error
	}

	// Store is the full persistence surface of the cash book.
	Store interface {
		EntryStore
		MemberStore
		ProductStore
		TaxonomyStore
		Close() error
	}
)
