// Package worker synchronizes stored transactions to the external ledger.
// Sync is driven by AMQP messages, with a periodic pending scan as a backup
// for lost messages or worker downtime.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"growahead/internal/amqp"
	"growahead/internal/ledger"
	"growahead/internal/log"
	"growahead/internal/storage"
)

// TransactionSource is the storage surface the worker needs.
type TransactionSource interface {
	GetTransaction(ctx context.Context, id int64) (*storage.StoredTransaction, error)
	GetPendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSyncTransaction, error)
	ListTransactions(ctx context.Context, year, month int) ([]storage.StoredTransaction, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// SyncWorker pushes transactions from storage to the configured ledger backend.
type SyncWorker struct {
	source    TransactionSource
	ledger    ledger.Backend
	batchSize int
}

func NewSyncWorker(source TransactionSource, backend ledger.Backend, batchSize int) *SyncWorker {
	return &SyncWorker{
		source:    source,
		ledger:    backend,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	tx, err := w.source.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.syncToLedger(ctx, tx); err != nil {
		return fmt.Errorf("sync transaction to ledger: %w", err)
	}

	return nil
}

// ProcessPendingTransactions syncs any transactions that haven't been exported
// yet. This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.source.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		tx, err := w.source.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.source.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.syncToLedger(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains pending transactions at worker startup, using a
// larger batch to recover from downtime quickly.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.source.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		tx, err := w.source.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup sync",
				"id", p.ID, "error", err)
			if err := w.source.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.syncToLedger(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

// ReconcileReport compares a month's exported ledger rows with the rows
// storage believes are synced.
type ReconcileReport struct {
	Year          int
	Month         int
	LedgerEntries int
	SyncedRows    int
}

// InSync reports whether the ledger and storage agree for the month.
func (r ReconcileReport) InSync() bool {
	return r.LedgerEntries == r.SyncedRows
}

// ReconcileMonth reads the month back from the ledger and counts it against
// the transactions storage has marked synced. A mismatch means exports were
// lost or duplicated and is logged for the operator; reconciliation never
// mutates either side.
func (w *SyncWorker) ReconcileMonth(ctx context.Context, year, month int) (ReconcileReport, error) {
	report := ReconcileReport{Year: year, Month: month}

	entries, err := w.ledger.ListEntries(ctx, year, month)
	if err != nil {
		return report, fmt.Errorf("list ledger entries: %w", err)
	}
	report.LedgerEntries = len(entries)

	txs, err := w.source.ListTransactions(ctx, year, month)
	if err != nil {
		return report, fmt.Errorf("list stored transactions: %w", err)
	}
	for _, tx := range txs {
		if tx.SyncStatus == storage.SyncStatusSynced {
			report.SyncedRows++
		}
	}

	if !report.InSync() {
		slog.WarnContext(ctx, "Ledger out of sync with storage",
			log.FieldYear, year,
			log.FieldMonth, month,
			"ledger_entries", report.LedgerEntries,
			"synced_rows", report.SyncedRows)
		return report, nil
	}

	slog.InfoContext(ctx, "Ledger reconciled",
		log.FieldYear, year,
		log.FieldMonth, month,
		"entries", report.LedgerEntries)
	return report, nil
}

// RunPeriodicSync scans for pending transactions on the given interval until
// the context is cancelled. It complements the AMQP consumer.
func (w *SyncWorker) RunPeriodicSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPendingTransactions(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) syncToLedger(ctx context.Context, tx *storage.StoredTransaction) error {
	entry := ledger.Entry{
		Date:        tx.Transaction.Date,
		Description: tx.Transaction.Description,
		Amount:      tx.Transaction.Amount,
		RoundUp:     tx.RoundUp,
		Category:    tx.Transaction.Category,
	}

	ref, err := w.ledger.Append(ctx, entry)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.source.MarkSynced(ctx, tx.ID); err != nil {
		// The export itself succeeded; log and move on.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", tx.ID,
		log.FieldLedgerRef, ref,
		log.FieldRoundUpCents, tx.RoundUp.Cents)

	return nil
}
