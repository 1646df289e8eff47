package memory

import (
	"context"
	"fmt"
	"sync"

	"growahead/internal/core"
	"growahead/internal/ledger"
)

// Store is an in-process ledger backend for local runs and tests.
type Store struct {
	mu    sync.Mutex
	items []ledger.Entry
}

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e ledger.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ListEntries returns entries whose date falls in the given year and month.
func (s *Store) ListEntries(_ context.Context, year int, month int) ([]ledger.Entry, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Entry
	for _, e := range s.items {
		if e.Date.Year() == year && e.Date.Month() == month {
			out = append(out, e)
		}
	}
	return out, nil
}

// TotalRoundUps sums the round-ups appended so far.
func (s *Store) TotalRoundUps() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, e := range s.items {
		total += e.RoundUp.Cents
	}
	return core.Money{Cents: total}
}

// Size returns the number of stored entries.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
