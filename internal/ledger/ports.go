package ledger

import (
	"context"

	"growahead/internal/core"
)

// Entry is one exported row: the original transaction plus its round-up.
type Entry struct {
	Date        core.Date
	Description string
	Amount      core.Money
	RoundUp     core.Money
	Category    core.Category
}

// Ports for outbound adapters.
type (
	// EntryAppender appends a processed transaction to the external ledger
	// and returns an opaque row reference for audit.
	EntryAppender interface {
		Append(ctx context.Context, e Entry) (rowRef string, err error)
	}

	// EntryLister returns the exported entries for a given month.
	EntryLister interface {
		ListEntries(ctx context.Context, year int, month int) ([]Entry, error)
	}
)

// Validate checks that the entry can be exported.
func (e Entry) Validate() error {
	tx := core.Transaction{
		Date:        e.Date,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	return e.RoundUp.Validate()
}
