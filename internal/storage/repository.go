package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"growahead/internal/core"

	_ "modernc.org/sqlite"
)

const (
	settingRiskProfile         = "risk_profile"
	settingMonthlyContribution = "monthly_contribution_cents"
	dateLayout                 = "2006-01-02"
)

// sync_status values as stored in the transactions table.
const (
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
	SyncStatusError   = "error"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks database connectivity for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// StoredTransaction is a persisted transaction with its round-up and sync state.
type StoredTransaction struct {
	ID          int64
	Transaction core.Transaction
	RoundUp     core.Money
	SyncStatus  string
	CreatedAt   time.Time
}

// PendingSyncTransaction carries the minimal data for sync queue messages.
type PendingSyncTransaction struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// SaveTransaction persists a validated transaction together with its round-up.
// The round-up is written once at ingestion and never mutated afterwards.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, tx core.Transaction, roundUp core.Money) (int64, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		TxDate:       tx.Date.Format(dateLayout),
		Description:  tx.Description,
		AmountCents:  tx.Amount.Cents,
		RoundUpCents: roundUp.Cents,
		Category:     string(tx.Category),
	})
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"description", row.Description,
		"amount_cents", row.AmountCents,
		"round_up_cents", row.RoundUpCents,
		"category", row.Category)

	return row.ID, nil
}

// GetTransaction retrieves a single stored transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*StoredTransaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	st, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListTransactions returns the stored transactions for a given month.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, year int, month int) ([]StoredTransaction, error) {
	start, end, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListTransactionsByRange(ctx, ListTransactionsByRangeParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions by month: %w", err)
	}
	out := make([]StoredTransaction, 0, len(rows))
	for _, row := range rows {
		st, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// ReadMonthOverview aggregates a month: totals, counts and per-category sums.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, year int, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{
		Year:  year,
		Month: month,
	}

	start, end, err := monthRange(year, month)
	if err != nil {
		return overview, err
	}
	rng := ListTransactionsByRangeParams{StartDate: start, EndDate: end}

	totals, err := r.queries.GetMonthTotals(ctx, rng)
	if err != nil {
		return overview, fmt.Errorf("get month totals: %w", err)
	}
	overview.TotalSpent = core.Money{Cents: totals.TotalAmountCents}
	overview.RoundUps = core.Money{Cents: totals.TotalRoundUpCents}
	overview.Count = int(totals.Count)

	categorySums, err := r.queries.GetCategorySums(ctx, rng)
	if err != nil {
		return overview, fmt.Errorf("get category sums: %w", err)
	}
	for _, cs := range categorySums {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{
			Category: core.Category(cs.Category),
			Spent:    core.Money{Cents: cs.TotalAmountCents},
			RoundUps: core.Money{Cents: cs.TotalRoundUpCents},
		})
	}

	return overview, nil
}

// RoundUpBalance returns the all-time accumulated round-ups and transaction count.
func (r *SQLiteRepository) RoundUpBalance(ctx context.Context) (core.Money, int, error) {
	totals, err := r.queries.GetRoundUpTotals(ctx)
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("get round-up totals: %w", err)
	}
	return core.Money{Cents: totals.TotalCents}, int(totals.Count), nil
}

// MonthlyRoundUpTotals returns observed per-month round-up totals in
// chronological order.
func (r *SQLiteRepository) MonthlyRoundUpTotals(ctx context.Context) ([]core.MonthlyTotal, error) {
	rows, err := r.queries.GetMonthlyRoundUpTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("get monthly round-up totals: %w", err)
	}
	out := make([]core.MonthlyTotal, 0, len(rows))
	for _, row := range rows {
		year, err := strconv.Atoi(row.Year)
		if err != nil {
			continue
		}
		month, err := strconv.Atoi(row.Month)
		if err != nil {
			continue
		}
		out = append(out, core.MonthlyTotal{
			Year:     year,
			Month:    month,
			RoundUps: core.Money{Cents: row.TotalCents},
		})
	}
	return out, nil
}

// GetPendingSyncTransactions returns transactions awaiting ledger export.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.queries.GetPendingSyncTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	out := make([]PendingSyncTransaction, len(rows))
	for i, row := range rows {
		out[i] = PendingSyncTransaction{
			ID:        row.ID,
			Version:   row.Version,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}

// MarkSynced marks a transaction as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSynced(ctx, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a transaction as having export errors.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// GetRiskProfile reads the stored risk profile, defaulting to balanced when
// the setting is absent.
func (r *SQLiteRepository) GetRiskProfile(ctx context.Context) (core.RiskProfile, error) {
	value, err := r.queries.GetSetting(ctx, settingRiskProfile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Balanced, nil
		}
		return "", fmt.Errorf("get risk profile: %w", err)
	}
	profile, err := core.ParseRiskProfile(value)
	if err != nil {
		return "", fmt.Errorf("stored risk profile %q: %w", value, err)
	}
	return profile, nil
}

// SetRiskProfile stores the selected risk profile.
func (r *SQLiteRepository) SetRiskProfile(ctx context.Context, profile core.RiskProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertSetting(ctx, settingRiskProfile, string(profile)); err != nil {
		return fmt.Errorf("set risk profile: %w", err)
	}
	slog.InfoContext(ctx, "Risk profile updated", "risk_profile", string(profile))
	return nil
}

// GetMonthlyContributionOverride returns the configured override, if any.
func (r *SQLiteRepository) GetMonthlyContributionOverride(ctx context.Context) (core.Money, bool, error) {
	value, err := r.queries.GetSetting(ctx, settingMonthlyContribution)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Money{}, false, nil
		}
		return core.Money{}, false, fmt.Errorf("get contribution override: %w", err)
	}
	cents, err := strconv.ParseInt(value, 10, 64)
	if err != nil || cents < 0 {
		return core.Money{}, false, fmt.Errorf("stored contribution override %q is invalid", value)
	}
	return core.Money{Cents: cents}, true, nil
}

// SetMonthlyContributionOverride stores a fixed monthly contribution that
// replaces the observed estimate in projections.
func (r *SQLiteRepository) SetMonthlyContributionOverride(ctx context.Context, amount core.Money) error {
	if amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	value := strconv.FormatInt(amount.Cents, 10)
	if err := r.queries.UpsertSetting(ctx, settingMonthlyContribution, value); err != nil {
		return fmt.Errorf("set contribution override: %w", err)
	}
	return nil
}

// ClearMonthlyContributionOverride removes the override, restoring the estimate.
func (r *SQLiteRepository) ClearMonthlyContributionOverride(ctx context.Context) error {
	if err := r.queries.DeleteSetting(ctx, settingMonthlyContribution); err != nil {
		return fmt.Errorf("clear contribution override: %w", err)
	}
	return nil
}

func fromRow(row Transaction) (StoredTransaction, error) {
	date, err := time.Parse(dateLayout, row.TxDate)
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("stored date %q: %w", row.TxDate, err)
	}
	return StoredTransaction{
		ID: row.ID,
		Transaction: core.Transaction{
			Date:        core.Date{Time: date},
			Description: row.Description,
			Amount:      core.Money{Cents: row.AmountCents},
			Category:    core.Category(row.Category),
		},
		RoundUp:    core.Money{Cents: row.RoundUpCents},
		SyncStatus: row.SyncStatus,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func monthRange(year int, month int) (string, string, error) {
	if month < 1 || month > 12 {
		return "", "", fmt.Errorf("invalid month: %d", month)
	}
	if year < 1 {
		return "", "", fmt.Errorf("invalid year: %d", year)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start.Format(dateLayout), end.Format(dateLayout), nil
}
