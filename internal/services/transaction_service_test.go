package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"growahead/internal/core"
)

type fakeStore struct {
	saved   []savedTx
	nextID  int64
	saveErr error
}

type savedTx struct {
	tx      core.Transaction
	roundUp core.Money
}

func (f *fakeStore) SaveTransaction(_ context.Context, tx core.Transaction, roundUp core.Money) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, savedTx{tx: tx, roundUp: roundUp})
	f.nextID++
	return f.nextID, nil
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishTransactionSync(_ context.Context, id, _ int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func validTransaction() core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(2025, 3, 15),
		Description: "coffee",
		Amount:      core.Money{Cents: 432},
		Category:    core.CategoryDining,
	}
}

func TestIngest(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	res, err := svc.Ingest(context.Background(), validTransaction())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.RoundUp.Cents != 68 {
		t.Fatalf("expected round-up 68, got %d", res.RoundUp.Cents)
	}
	if len(store.saved) != 1 || store.saved[0].roundUp.Cents != 68 {
		t.Fatalf("unexpected saved state: %+v", store.saved)
	}
	if len(pub.published) != 1 || pub.published[0] != res.ID {
		t.Fatalf("expected sync message for id %d, got %v", res.ID, pub.published)
	}
}

func TestIngestRejectsInvalid(t *testing.T) {
	store := &fakeStore{}
	svc := NewTransactionService(store, nil)

	tx := validTransaction()
	tx.Amount = core.Money{Cents: 0}
	if _, err := svc.Ingest(context.Background(), tx); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("invalid transaction must not be saved")
	}
}

func TestIngestPublisherFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(store, pub)

	if _, err := svc.Ingest(context.Background(), validTransaction()); err != nil {
		t.Fatalf("broker failure must not fail ingestion: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("transaction must still be saved")
	}
}

func TestIngestStoreFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	svc := NewTransactionService(store, nil)

	if _, err := svc.Ingest(context.Background(), validTransaction()); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestImportCSV(t *testing.T) {
	input := strings.Join([]string{
		"date,description,amount,category",
		"2025-03-01,groceries run,4.32,groceries",
		"2025-03-02,lunch,15.67,dining",
		"2025-03-03,round numbers,5.00,dining",
	}, "\n")

	store := &fakeStore{}
	svc := NewTransactionService(store, nil)

	res, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 3 {
		t.Fatalf("expected 3 imported, got %d", res.Imported)
	}
	if len(res.Rejected) != 0 {
		t.Fatalf("expected no rejects, got %+v", res.Rejected)
	}
	// 0.68 + 0.33 + 1.00
	if res.TotalRoundUps.Cents != 201 {
		t.Fatalf("expected total round-ups 201, got %d", res.TotalRoundUps.Cents)
	}
	if len(store.saved) != 3 {
		t.Fatalf("expected 3 saved, got %d", len(store.saved))
	}
}

func TestImportCSVSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"2025-03-01,ok row,4.32,groceries",
		"not-a-date,bad date,1.00,groceries",
		"2025-03-03,bad amount,abc,groceries",
		"2025-03-04,bad category,2.00,crypto",
		"2025-03-05,short row",
		"2025-03-06,another ok row,9.99,other",
	}, "\n")

	store := &fakeStore{}
	svc := NewTransactionService(store, nil)

	res, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 2 {
		t.Fatalf("expected 2 imported, got %d", res.Imported)
	}
	if len(res.Rejected) != 4 {
		t.Fatalf("expected 4 rejected, got %+v", res.Rejected)
	}
	for _, rej := range res.Rejected {
		if rej.Reason == "" {
			t.Fatalf("rejected row must carry a reason: %+v", rej)
		}
		if rej.Line == 0 {
			t.Fatalf("rejected row must carry a line number: %+v", rej)
		}
	}
	if res.TotalRoundUps.Cents != 68+1 {
		t.Fatalf("expected total round-ups 69, got %d", res.TotalRoundUps.Cents)
	}
}

func TestImportCSVDuplicateRejectsKeepOwnLines(t *testing.T) {
	// Two identical rows with an empty description parse fine but fail batch
	// validation. Each reject must point at its own CSV line.
	input := strings.Join([]string{
		"date,description,amount,category",
		"2025-03-01,groceries run,4.32,groceries",
		"2025-03-02,,1.00,dining",
		"2025-03-03,lunch,15.67,dining",
		"2025-03-02,,1.00,dining",
	}, "\n")

	store := &fakeStore{}
	svc := NewTransactionService(store, nil)

	res, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 2 {
		t.Fatalf("expected 2 imported, got %d", res.Imported)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("expected 2 rejected, got %+v", res.Rejected)
	}
	if res.Rejected[0].Line != 3 || res.Rejected[1].Line != 5 {
		t.Fatalf("identical rows reported lines %d and %d, want 3 and 5",
			res.Rejected[0].Line, res.Rejected[1].Line)
	}
}

func TestImportCSVEmptyInput(t *testing.T) {
	svc := NewTransactionService(&fakeStore{}, nil)
	res, err := svc.ImportCSV(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 0 || len(res.Rejected) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
