// Package memory is an in-process store.Store used by tests and the memory
// backend.
package memory

import (
	"context"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

type Store struct {
	mu    sync.Mutex
	table *store.Table
}

// New returns a store seeded with a copy of seed, or an empty table.
func New(seed *store.Table) *Store {
	if seed == nil {
		return &Store{}
	}
	return &Store{table: seed.Clone()}
}

func (s *Store) Ensure(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		s.table = store.NewTable()
	}
	return nil
}

func (s *Store) Append(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		s.table = store.NewTable()
	}
	s.table.Rows = append(s.table.Rows, store.Layout(s.table.Header, e))
	return nil
}

func (s *Store) Load(_ context.Context) (*store.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return store.NewTable(), nil
	}
	return s.table.Clone(), nil
}

func (s *Store) Rewrite(_ context.Context, t *store.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t.Clone()
	return nil
}
