package worker

import (
	"context"
	"errors"
	"testing"

	"growahead/internal/amqp"
	"growahead/internal/core"
	"growahead/internal/ledger"
	"growahead/internal/storage"
)

type fakeSource struct {
	transactions map[int64]*storage.StoredTransaction
	pending      []storage.PendingSyncTransaction
	synced       []int64
	errored      []int64
	listErr      error
}

func newFakeSource() *fakeSource {
	return &fakeSource{transactions: map[int64]*storage.StoredTransaction{}}
}

func (f *fakeSource) GetTransaction(_ context.Context, id int64) (*storage.StoredTransaction, error) {
	tx, ok := f.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return tx, nil
}

func (f *fakeSource) GetPendingSyncTransactions(_ context.Context, limit int) ([]storage.PendingSyncTransaction, error) {
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return f.pending[:limit], nil
}

func (f *fakeSource) ListTransactions(_ context.Context, year, month int) ([]storage.StoredTransaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []storage.StoredTransaction
	for _, tx := range f.transactions {
		if tx.Transaction.Date.Year() == year && tx.Transaction.Date.Month() == month {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (f *fakeSource) MarkSynced(_ context.Context, id int64) error {
	f.synced = append(f.synced, id)
	return nil
}

func (f *fakeSource) MarkSyncError(_ context.Context, id int64) error {
	f.errored = append(f.errored, id)
	return nil
}

type fakeLedger struct {
	entries []ledger.Entry
	err     error
	listErr error
}

func (f *fakeLedger) Append(_ context.Context, e ledger.Entry) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.entries = append(f.entries, e)
	return "row:1", nil
}

func (f *fakeLedger) ListEntries(_ context.Context, year, month int) ([]ledger.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []ledger.Entry
	for _, e := range f.entries {
		if e.Date.Year() == year && e.Date.Month() == month {
			out = append(out, e)
		}
	}
	return out, nil
}

func storedTx(id int64) *storage.StoredTransaction {
	return &storage.StoredTransaction{
		ID: id,
		Transaction: core.Transaction{
			Date:        core.NewDate(2026, 8, 15),
			Description: "Coffee",
			Amount:      core.Money{Cents: 430},
			Category:    core.CategoryDining,
		},
		RoundUp:    core.Money{Cents: 70},
		SyncStatus: "pending",
	}
}

func TestHandleSyncMessage(t *testing.T) {
	source := newFakeSource()
	source.transactions[1] = storedTx(1)
	backend := &fakeLedger{}
	w := NewSyncWorker(source, backend, 10)

	msg := &amqp.TransactionSyncMessage{ID: 1, Version: 1}
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle sync message: %v", err)
	}

	if len(backend.entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(backend.entries))
	}
	entry := backend.entries[0]
	if entry.RoundUp.Cents != 70 || entry.Amount.Cents != 430 {
		t.Errorf("unexpected entry amounts: %+v", entry)
	}
	if len(source.synced) != 1 || source.synced[0] != 1 {
		t.Errorf("expected transaction 1 marked synced, got %v", source.synced)
	}
}

func TestHandleSyncMessageMissingTransaction(t *testing.T) {
	w := NewSyncWorker(newFakeSource(), &fakeLedger{}, 10)

	msg := &amqp.TransactionSyncMessage{ID: 42, Version: 1}
	err := w.HandleSyncMessage(context.Background(), msg)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncMarksErrorOnAppendFailure(t *testing.T) {
	source := newFakeSource()
	source.transactions[1] = storedTx(1)
	backend := &fakeLedger{err: errors.New("sheet unavailable")}
	w := NewSyncWorker(source, backend, 10)

	msg := &amqp.TransactionSyncMessage{ID: 1, Version: 1}
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error when append fails")
	}

	if len(source.errored) != 1 || source.errored[0] != 1 {
		t.Errorf("expected transaction 1 marked errored, got %v", source.errored)
	}
	if len(source.synced) != 0 {
		t.Errorf("nothing should be marked synced, got %v", source.synced)
	}
}

func TestProcessPendingTransactions(t *testing.T) {
	source := newFakeSource()
	source.transactions[1] = storedTx(1)
	source.transactions[2] = storedTx(2)
	source.pending = []storage.PendingSyncTransaction{{ID: 1}, {ID: 2}, {ID: 3}}
	backend := &fakeLedger{}
	w := NewSyncWorker(source, backend, 10)

	if err := w.ProcessPendingTransactions(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	if len(backend.entries) != 2 {
		t.Errorf("expected 2 synced entries, got %d", len(backend.entries))
	}
	// Transaction 3 is pending but no longer loadable.
	if len(source.errored) != 1 || source.errored[0] != 3 {
		t.Errorf("expected transaction 3 marked errored, got %v", source.errored)
	}
}

func TestProcessPendingRespectsBatchSize(t *testing.T) {
	source := newFakeSource()
	for i := int64(1); i <= 5; i++ {
		source.transactions[i] = storedTx(i)
		source.pending = append(source.pending, storage.PendingSyncTransaction{ID: i})
	}
	backend := &fakeLedger{}
	w := NewSyncWorker(source, backend, 3)

	if err := w.ProcessPendingTransactions(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	if len(backend.entries) != 3 {
		t.Errorf("expected batch of 3, got %d", len(backend.entries))
	}
}

func syncedTx(id int64) *storage.StoredTransaction {
	tx := storedTx(id)
	tx.SyncStatus = storage.SyncStatusSynced
	return tx
}

func TestReconcileMonthInSync(t *testing.T) {
	source := newFakeSource()
	source.transactions[1] = syncedTx(1)
	source.transactions[2] = syncedTx(2)
	backend := &fakeLedger{}
	w := NewSyncWorker(source, backend, 10)

	// Export both so the ledger matches storage.
	for _, id := range []int64{1, 2} {
		if err := w.syncToLedger(context.Background(), source.transactions[id]); err != nil {
			t.Fatalf("sync %d: %v", id, err)
		}
	}

	report, err := w.ReconcileMonth(context.Background(), 2026, 8)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.InSync() {
		t.Fatalf("expected in sync, got %+v", report)
	}
	if report.LedgerEntries != 2 || report.SyncedRows != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
}

func TestReconcileMonthDetectsMissingExport(t *testing.T) {
	source := newFakeSource()
	source.transactions[1] = syncedTx(1)
	source.transactions[2] = syncedTx(2)
	source.transactions[3] = storedTx(3) // still pending, not counted
	backend := &fakeLedger{}
	w := NewSyncWorker(source, backend, 10)

	// Only one of the two synced rows actually reached the ledger.
	if _, err := backend.Append(context.Background(), ledger.Entry{
		Date:        source.transactions[1].Transaction.Date,
		Description: source.transactions[1].Transaction.Description,
		Amount:      source.transactions[1].Transaction.Amount,
		RoundUp:     source.transactions[1].RoundUp,
		Category:    source.transactions[1].Transaction.Category,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	report, err := w.ReconcileMonth(context.Background(), 2026, 8)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.InSync() {
		t.Fatalf("expected mismatch, got %+v", report)
	}
	if report.LedgerEntries != 1 || report.SyncedRows != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
}

func TestReconcileMonthLedgerFailure(t *testing.T) {
	backend := &fakeLedger{listErr: errors.New("sheet unavailable")}
	w := NewSyncWorker(newFakeSource(), backend, 10)

	if _, err := w.ReconcileMonth(context.Background(), 2026, 8); err == nil {
		t.Fatal("expected error when the ledger read fails")
	}
}

func TestStartupSyncCheckUsesLargerBatch(t *testing.T) {
	source := newFakeSource()
	for i := int64(1); i <= 8; i++ {
		source.transactions[i] = storedTx(i)
		source.pending = append(source.pending, storage.PendingSyncTransaction{ID: i})
	}
	backend := &fakeLedger{}
	w := NewSyncWorker(source, backend, 2)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("startup sync: %v", err)
	}

	// Startup uses batchSize*5, so all 8 fit.
	if len(backend.entries) != 8 {
		t.Errorf("expected all 8 synced on startup, got %d", len(backend.entries))
	}
}
