package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of database/sql used by Queries, so they work with
// both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Transaction is the transactions table row.
type Transaction struct {
	ID             int64
	TxDate         string
	Description    string
	AmountCents    int64
	RoundUpCents   int64
	Category       string
	SyncStatus     string
	SyncErrorCount int64
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const createTransaction = `
INSERT INTO transactions (tx_date, description, amount_cents, round_up_cents, category)
VALUES (?, ?, ?, ?, ?)
RETURNING id, tx_date, description, amount_cents, round_up_cents, category,
          sync_status, sync_error_count, version, created_at, updated_at
`

type CreateTransactionParams struct {
	TxDate       string
	Description  string
	AmountCents  int64
	RoundUpCents int64
	Category     string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.TxDate, arg.Description, arg.AmountCents, arg.RoundUpCents, arg.Category)
	var t Transaction
	err := row.Scan(&t.ID, &t.TxDate, &t.Description, &t.AmountCents, &t.RoundUpCents,
		&t.Category, &t.SyncStatus, &t.SyncErrorCount, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const getTransaction = `
SELECT id, tx_date, description, amount_cents, round_up_cents, category,
       sync_status, sync_error_count, version, created_at, updated_at
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var t Transaction
	err := row.Scan(&t.ID, &t.TxDate, &t.Description, &t.AmountCents, &t.RoundUpCents,
		&t.Category, &t.SyncStatus, &t.SyncErrorCount, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const listTransactionsByRange = `
SELECT id, tx_date, description, amount_cents, round_up_cents, category,
       sync_status, sync_error_count, version, created_at, updated_at
FROM transactions
WHERE tx_date >= ? AND tx_date < ?
ORDER BY tx_date, id
`

type ListTransactionsByRangeParams struct {
	StartDate string
	EndDate   string
}

func (q *Queries) ListTransactionsByRange(ctx context.Context, arg ListTransactionsByRangeParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByRange, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.TxDate, &t.Description, &t.AmountCents, &t.RoundUpCents,
			&t.Category, &t.SyncStatus, &t.SyncErrorCount, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getRoundUpTotals = `
SELECT COALESCE(SUM(round_up_cents), 0), COUNT(*)
FROM transactions
`

type RoundUpTotalsRow struct {
	TotalCents int64
	Count      int64
}

func (q *Queries) GetRoundUpTotals(ctx context.Context) (RoundUpTotalsRow, error) {
	row := q.db.QueryRowContext(ctx, getRoundUpTotals)
	var r RoundUpTotalsRow
	err := row.Scan(&r.TotalCents, &r.Count)
	return r, err
}

const getMonthTotals = `
SELECT COALESCE(SUM(amount_cents), 0), COALESCE(SUM(round_up_cents), 0), COUNT(*)
FROM transactions
WHERE tx_date >= ? AND tx_date < ?
`

type MonthTotalsRow struct {
	TotalAmountCents  int64
	TotalRoundUpCents int64
	Count             int64
}

func (q *Queries) GetMonthTotals(ctx context.Context, arg ListTransactionsByRangeParams) (MonthTotalsRow, error) {
	row := q.db.QueryRowContext(ctx, getMonthTotals, arg.StartDate, arg.EndDate)
	var r MonthTotalsRow
	err := row.Scan(&r.TotalAmountCents, &r.TotalRoundUpCents, &r.Count)
	return r, err
}

const getCategorySums = `
SELECT category, COALESCE(SUM(amount_cents), 0), COALESCE(SUM(round_up_cents), 0)
FROM transactions
WHERE tx_date >= ? AND tx_date < ?
GROUP BY category
ORDER BY SUM(amount_cents) DESC
`

type CategorySumsRow struct {
	Category          string
	TotalAmountCents  int64
	TotalRoundUpCents int64
}

func (q *Queries) GetCategorySums(ctx context.Context, arg ListTransactionsByRangeParams) ([]CategorySumsRow, error) {
	rows, err := q.db.QueryContext(ctx, getCategorySums, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySumsRow
	for rows.Next() {
		var r CategorySumsRow
		if err := rows.Scan(&r.Category, &r.TotalAmountCents, &r.TotalRoundUpCents); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getMonthlyRoundUpTotals = `
SELECT substr(tx_date, 1, 4), substr(tx_date, 6, 2), COALESCE(SUM(round_up_cents), 0)
FROM transactions
GROUP BY substr(tx_date, 1, 7)
ORDER BY substr(tx_date, 1, 7)
`

type MonthlyRoundUpTotalsRow struct {
	Year       string
	Month      string
	TotalCents int64
}

func (q *Queries) GetMonthlyRoundUpTotals(ctx context.Context) ([]MonthlyRoundUpTotalsRow, error) {
	rows, err := q.db.QueryContext(ctx, getMonthlyRoundUpTotals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlyRoundUpTotalsRow
	for rows.Next() {
		var r MonthlyRoundUpTotalsRow
		if err := rows.Scan(&r.Year, &r.Month, &r.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getPendingSyncTransactions = `
SELECT id, tx_date, description, amount_cents, round_up_cents, category,
       sync_status, sync_error_count, version, created_at, updated_at
FROM transactions
WHERE sync_status = 'pending'
ORDER BY created_at, id
LIMIT ?
`

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, limit int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncTransactions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.TxDate, &t.Description, &t.AmountCents, &t.RoundUpCents,
			&t.Category, &t.SyncStatus, &t.SyncErrorCount, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const markTransactionSynced = `
UPDATE transactions
SET sync_status = 'synced', version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

func (q *Queries) MarkTransactionSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionSynced, id)
	return err
}

const markTransactionSyncError = `
UPDATE transactions
SET sync_status = 'error', sync_error_count = sync_error_count + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionSyncError, id)
	return err
}

const getSetting = `
SELECT value FROM settings WHERE key = ?
`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&value)
	return value, err
}

const upsertSetting = `
INSERT INTO settings (key, value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}

const deleteSetting = `
DELETE FROM settings WHERE key = ?
`

func (q *Queries) DeleteSetting(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteSetting, key)
	return err
}
