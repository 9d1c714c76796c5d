package memory

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Store is an in-process LedgerMirror used by tests and dry runs.
type Store struct {
	mu    sync.Mutex
	rows  map[int64]core.Transaction
	calls int
}

var _ ports.LedgerMirror = (*Store)(nil)

func New() *Store {
	return &Store{rows: map[int64]core.Transaction{}}
}

// Upsert stores t, replacing any row with the same ID.
func (s *Store) Upsert(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.rows[t.ID] = t
	return nil
}

// Remove drops the row for id if present.
func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	delete(s.rows, id)
	return nil
}

// Get returns the mirrored row for id.
func (s *Store) Get(id int64) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	return t, ok
}

// Rows returns the mirrored rows in ID order.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.rows))
	for _, t := range s.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Calls reports how many Upsert and Remove calls the store has served.
func (s *Store) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
