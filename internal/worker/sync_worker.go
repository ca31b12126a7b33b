package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
	"cashbook/internal/sheets"
	"cashbook/internal/store"
)

// SyncWorker keeps the Google Sheets mirror of the entry ledger in step
// with storage. It is driven by AMQP sync messages, with a periodic full
// resync as a backup in case messages are lost.
type SyncWorker struct {
	entries   store.EntryStore
	mirror    sheets.EntryMirror
	batchSize int
}

func NewSyncWorker(entries store.EntryStore, mirror sheets.EntryMirror, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SyncWorker{
		entries:   entries,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleMessage processes a single entry sync message. Upserts re-read the
// entry from storage so the mirror always gets the current state rather
// than the state at publish time; an entry that has since been deleted is
// treated as a delete.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"entry_id", msg.EntryID,
		"op", msg.Op)

	switch msg.Op {
	case amqp.OpDelete:
		if err := w.mirror.DeleteEntry(ctx, msg.EntryID); err != nil {
			return fmt.Errorf("delete entry %s from mirror: %w", msg.EntryID, err)
		}
		return nil
	case amqp.OpUpsert:
		e, err := w.entries.GetEntry(ctx, msg.EntryID)
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Entry gone from storage, removing from mirror",
				"entry_id", msg.EntryID)
			if err := w.mirror.DeleteEntry(ctx, msg.EntryID); err != nil {
				return fmt.Errorf("delete entry %s from mirror: %w", msg.EntryID, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("get entry %s from storage: %w", msg.EntryID, err)
		}
		if err := w.mirror.UpsertEntry(ctx, e); err != nil {
			return fmt.Errorf("upsert entry %s to mirror: %w", msg.EntryID, err)
		}
		return nil
	default:
		// Bad op means a bad publisher; requeueing would loop forever.
		slog.WarnContext(ctx, "Dropping sync message with unknown op",
			"entry_id", msg.EntryID,
			"op", msg.Op)
		return nil
	}
}

// ResyncAll pushes every stored entry to the mirror. It is a recovery
// mechanism, not the main path, so it keeps going past individual entry
// failures and reports only how many failed.
func (w *SyncWorker) ResyncAll(ctx context.Context) error {
	entries, err := w.entries.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list entries for resync: %w", err)
	}
	if len(entries) == 0 {
		slog.InfoContext(ctx, "No entries to resync")
		return nil
	}

	slog.InfoContext(ctx, "Resyncing entries to mirror", "count", len(entries))

	failed := 0
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror.UpsertEntry(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to resync entry",
				"entry_id", e.ID, "error", err)
			failed++
			continue
		}
		// Brief pause between batches to stay under the Sheets quota.
		if (i+1)%w.batchSize == 0 && i+1 < len(entries) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}

	slog.InfoContext(ctx, "Resync completed",
		"total", len(entries),
		"synced", len(entries)-failed,
		"errors", failed)

	if failed > 0 {
		return fmt.Errorf("resync finished with %d of %d entries failed", failed, len(entries))
	}
	return nil
}

// RunPeriodicResync runs ResyncAll on the given interval until the context
// is cancelled. Failures are logged and the next tick tries again.
func (w *SyncWorker) RunPeriodicResync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ResyncAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic resync failed", "error", err)
			}
		}
	}
}
