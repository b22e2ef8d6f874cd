// Package store defines the tabular expense store port and the helpers
// shared by its adapters.
package store

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/core"
)

// ErrRowOutOfRange is returned when a row index does not address a row of the
// current table.
var ErrRowOutOfRange = errors.New("row index out of range")

type (
	// Row is one record in column order of the table header.
	Row []string

	// Table is a full snapshot of the store. Row positions are the indexes
	// used by corrections and deletions.
	Table struct {
		Header []string
		Rows   []Row
	}
)

// Store is the persistence port. Adapters live in subpackages.
type Store interface {
	// Ensure creates an empty store with the default header if none exists.
	Ensure(ctx context.Context) error
	// Append adds one expense at the end of the store.
	Append(ctx context.Context, e core.Expense) error
	// Load returns every well-formed row. Malformed rows are skipped.
	Load(ctx context.Context) (*Table, error)
	// Rewrite replaces the whole store with t.
	Rewrite(ctx context.Context, t *Table) error
}

// NewTable returns an empty table with the default header.
func NewTable() *Table {
	return &Table{Header: core.Header()}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// Without returns a copy of the table with row i removed.
func (t *Table) Without(i int) (*Table, error) {
	if err := t.checkIndex(i); err != nil {
		return nil, err
	}
	out := t.Clone()
	out.Rows = append(out.Rows[:i], out.Rows[i+1:]...)
	return out, nil
}

func (t *Table) checkIndex(i int) error {
	if i < 0 || i >= t.Len() {
		return fmt.Errorf("%w: %d (rows: %d)", ErrRowOutOfRange, i, t.Len())
	}
	return nil
}
