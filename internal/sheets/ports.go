// Package sheets declares the outbound mirror port: a spreadsheet copy of
// the entry ledger kept up to date by the sync worker.
package sheets

import (
	"context"

	"cashbook/internal/core"
)

type (
	// EntryMirror reconciles single entries with the mirror sheet.
	EntryMirror interface {
		// UpsertEntry writes the entry's row, replacing an existing row
		// with the same ID or appending a new one.
		UpsertEntry(ctx context.Context, e core.Entry) error
		// DeleteEntry removes the entry's row; deleting an absent row is
		// not an error.
		DeleteEntry(ctx context.Context, entryID string) error
	}
)
