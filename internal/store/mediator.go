package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"expensetracker/internal/core"
)

// ErrNoCategoryColumn is returned by UpdateCategories when the table has no
// category column to write to.
var ErrNoCategoryColumn = errors.New("store has no category column")

// Mediator is the single writer in front of a Store. Every mutation,
// including the load-modify-rewrite sequences, runs under one lock so
// concurrent sessions cannot interleave a stale rewrite.
type Mediator struct {
	mu    sync.Mutex
	store Store
}

func NewMediator(s Store) *Mediator {
	return &Mediator{store: s}
}

func (m *Mediator) Ensure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Ensure(ctx)
}

// Load is not serialised; adapters guarantee a reader sees a complete file.
func (m *Mediator) Load(ctx context.Context) (*Table, error) {
	return m.store.Load(ctx)
}

func (m *Mediator) Append(ctx context.Context, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Append(ctx, e)
}

func (m *Mediator) Rewrite(ctx context.Context, t *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Rewrite(ctx, t)
}

// DeleteRow removes row i from a fresh load and rewrites the store. It returns
// the removed row.
func (m *Mediator) DeleteRow(ctx context.Context, i int) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	next, err := t.Without(i)
	if err != nil {
		return nil, err
	}
	removed := append(Row(nil), t.Rows[i]...)
	if err := m.store.Rewrite(ctx, next); err != nil {
		return nil, fmt.Errorf("rewrite store: %w", err)
	}
	return removed, nil
}

// UpdateCategories sets the category of each indexed row and rewrites the
// store once. All indexes are validated before anything is written. It returns
// the indexes of the rows that actually changed, in ascending order; when none
// did the store is left untouched.
func (m *Mediator) UpdateCategories(ctx context.Context, updates map[int]string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	schema := ResolveSchema(t.Header)
	if !schema.Has(FieldCategory) {
		return nil, ErrNoCategoryColumn
	}

	idx := make([]int, 0, len(updates))
	for i := range updates {
		if err := t.checkIndex(i); err != nil {
			return nil, err
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)

	next := t.Clone()
	var changed []int
	for _, i := range idx {
		if schema.Cell(next.Rows[i], FieldCategory) == updates[i] {
			continue
		}
		schema.SetCell(next.Rows[i], FieldCategory, updates[i])
		changed = append(changed, i)
	}
	if len(changed) == 0 {
		return nil, nil
	}
	if err := m.store.Rewrite(ctx, next); err != nil {
		return nil, fmt.Errorf("rewrite store: %w", err)
	}
	return changed, nil
}
