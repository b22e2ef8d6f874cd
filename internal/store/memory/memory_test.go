package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

func TestAppendFollowsHeaderOrder(t *testing.T) {
	ctx := context.Background()
	s := New(&store.Table{Header: []string{"Predicted Category", "Amount", "Date", "Description", "Notes"}})
	err := s.Append(ctx, core.Expense{
		Date:        time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
		Description: "lunch",
		Amount:      decimal.NewFromInt(12),
		Category:    "Food",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	tbl, _ := s.Load(ctx)
	want := store.Row{"Food", "12.00", "2024-02-03", "lunch", ""}
	for i := range want {
		if tbl.Rows[0][i] != want[i] {
			t.Fatalf("col %d: want %q got %q", i, want[i], tbl.Rows[0][i])
		}
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(&store.Table{Header: core.Header(), Rows: []store.Row{{"2024-01-01", "tea", "1.00", "Food"}}})
	tbl, _ := s.Load(ctx)
	tbl.Rows[0][3] = "changed"
	again, _ := s.Load(ctx)
	if again.Rows[0][3] != "Food" {
		t.Fatalf("store state leaked through Load")
	}
}
