package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"growahead/internal/core"
)

// TransactionStore is the storage surface the transaction service needs.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, tx core.Transaction, roundUp core.Money) (int64, error)
}

// SyncPublisher enqueues background ledger export for a saved transaction.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
}

// TransactionService orchestrates ingestion: validate, compute the round-up,
// persist, and enqueue the ledger export.
type TransactionService struct {
	store     TransactionStore
	publisher SyncPublisher
}

func NewTransactionService(store TransactionStore, publisher SyncPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// IngestResult reports a single saved transaction.
type IngestResult struct {
	ID      int64
	RoundUp core.Money
}

// Ingest validates one transaction, computes its round-up and persists both.
// The sync message is best-effort: a dead broker never fails the request.
func (s *TransactionService) Ingest(ctx context.Context, tx core.Transaction) (IngestResult, error) {
	if err := tx.Validate(); err != nil {
		return IngestResult{}, err
	}

	roundUp, err := core.CalculateRoundUp(tx.Amount)
	if err != nil {
		return IngestResult{}, err
	}

	id, err := s.store.SaveTransaction(ctx, tx, roundUp)
	if err != nil {
		return IngestResult{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishSyncMessage(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request - transaction is saved locally
	}

	return IngestResult{ID: id, RoundUp: roundUp}, nil
}

func (s *TransactionService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishTransactionSync(ctx, id, version)
}

// RejectedRow reports one CSV row that could not be imported.
type RejectedRow struct {
	Line   int    `json:"line"`
	Input  string `json:"input"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported      int
	TotalRoundUps core.Money
	Rejected      []RejectedRow
}

const csvDateLayout = "2006-01-02"

// ImportCSV reads date,description,amount,category rows and ingests each valid
// one. Malformed rows are skipped and reported; they never abort the import.
func (s *TransactionService) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var result ImportResult
	var txs []core.Transaction
	var lines []int
	line := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRow{
				Line:   line,
				Input:  "",
				Reason: fmt.Sprintf("malformed CSV: %v", err),
			})
			continue
		}
		if line == 1 && isHeaderRow(record) {
			continue
		}

		tx, err := parseCSVRow(record)
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRow{
				Line:   line,
				Input:  strings.Join(record, ","),
				Reason: err.Error(),
			})
			continue
		}
		txs = append(txs, tx)
		lines = append(lines, line)
	}

	// The batch round-up pass re-validates and skips what it rejects.
	// Rejects carry their input index, which maps back to the CSV line.
	batch := core.ProcessRoundUps(txs)
	for _, rej := range batch.Rejected {
		result.Rejected = append(result.Rejected, RejectedRow{
			Line:   lines[rej.Index],
			Input:  rej.Transaction.Description,
			Reason: rej.Reason.Error(),
		})
	}

	for _, p := range batch.Processed {
		id, err := s.store.SaveTransaction(ctx, p.Transaction, p.RoundUp)
		if err != nil {
			return result, fmt.Errorf("save imported transaction: %w", err)
		}
		if err := s.publishSyncMessage(ctx, id, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message for import",
				"id", id, "error", err)
		}
		result.Imported++
		result.TotalRoundUps.Cents += p.RoundUp.Cents
	}

	slog.InfoContext(ctx, "CSV import completed",
		"imported", result.Imported,
		"rejected", len(result.Rejected),
		"total_round_ups", result.TotalRoundUps.Cents)

	return result, nil
}

func parseCSVRow(record []string) (core.Transaction, error) {
	if len(record) < 4 {
		return core.Transaction{}, fmt.Errorf("expected 4 fields (date,description,amount,category), got %d", len(record))
	}

	date, err := time.Parse(csvDateLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid date %q: %w", record[0], core.ErrInvalidDate)
	}

	cents, err := core.ParseDecimalToCents(record[2])
	if err != nil {
		return core.Transaction{}, err
	}

	category, err := core.ParseCategory(record[3])
	if err != nil {
		return core.Transaction{}, err
	}

	return core.Transaction{
		Date:        core.Date{Time: date},
		Description: strings.TrimSpace(record[1]),
		Amount:      core.Money{Cents: cents},
		Category:    category,
	}, nil
}

func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	return first == "date" || first == "data"
}
