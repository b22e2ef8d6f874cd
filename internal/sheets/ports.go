// Package sheets holds the outbound port for mirroring the expense store to
// a spreadsheet.
package sheets

import (
	"context"

	"expensetracker/internal/store"
)

// SnapshotWriter replaces the whole mirrored sheet with t, header first.
type SnapshotWriter interface {
	ReplaceAll(ctx context.Context, t *store.Table) error
}
