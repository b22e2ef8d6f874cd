package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

func expense(desc, amount, cat string) core.Expense {
	return core.Expense{
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Category:    cat,
	}
}

func TestEnsureCreatesHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "expense.csv")
	s := New(path)
	require.NoError(t, s.Ensure(context.Background()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Description,Amount,Predicted Category\n", string(b))
}

func TestEnsureLeavesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expense.csv")
	content := "Date,Description,Amount,Predicted Category\n2024-01-01,tea,2.00,Food\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, New(path).Ensure(context.Background()))
	b, _ := os.ReadFile(path)
	assert.Equal(t, content, string(b))
}

func TestAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expense.csv")
	s := New(path)

	// No Ensure: Append must write the header itself.
	require.NoError(t, s.Append(ctx, expense("coffee, large", "3.5", "Food")))
	require.NoError(t, s.Append(ctx, expense("taxi", "20", "Transport")))

	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Header(), tbl.Header)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, store.Row{"2024-05-01", "coffee, large", "3.50", "Food"}, tbl.Rows[0])
	assert.Equal(t, store.Row{"2024-05-01", "taxi", "20.00", "Transport"}, tbl.Rows[1])
}

func TestLoadMissingFile(t *testing.T) {
	tbl, err := New(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.Header(), tbl.Header)
	assert.Zero(t, tbl.Len())
}

func TestReadTableSkipsMalformedRows(t *testing.T) {
	in := strings.Join([]string{
		"Date,Description,Amount,Predicted Category",
		"2024-01-01,tea,2.00,Food",
		"2024-01-02,too,many,fields,here",
		"short,row",
		"2024-01-03,bus,1.50,Transport",
	}, "\n") + "\n"

	tbl, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "tea", tbl.Rows[0][1])
	assert.Equal(t, "bus", tbl.Rows[1][1])
}

func TestRewriteReplacesContent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "expense.csv")
	s := New(path)
	require.NoError(t, s.Append(ctx, expense("a", "1", "X")))
	require.NoError(t, s.Append(ctx, expense("b", "2", "Y")))

	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	next, err := tbl.Without(0)
	require.NoError(t, err)
	require.NoError(t, s.Rewrite(ctx, next))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "b", got.Rows[0][1])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestRewritePreservesCustomHeader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expense.csv")
	s := New(path)
	tbl := &store.Table{Header: []string{"date", "category", "amount"}, Rows: []store.Row{{"2024-01-01", "Food", "1"}}}
	require.NoError(t, s.Rewrite(ctx, tbl))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, tbl.Header, got.Header)
	assert.Equal(t, tbl.Rows, got.Rows)
}

func TestAppendMatchesExistingHeader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expense.csv")
	content := "Date,Description,Amount,Category,Notes\n2024-01-01,tea,2.00,food,x\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := New(path)
	require.NoError(t, s.Append(ctx, expense("coffee", "3", "food")))

	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len(), "appended row must keep the header arity")
	assert.Equal(t, store.Row{"2024-05-01", "coffee", "3.00", "food", ""}, tbl.Rows[1])
}

func TestAppendFollowsReorderedHeader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expense.csv")
	require.NoError(t, os.WriteFile(path, []byte("category,amount,date,description\n"), 0o644))

	s := New(path)
	require.NoError(t, s.Append(ctx, expense("bus", "1.2", "Transport")))

	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, store.Row{"Transport", "1.20", "2024-05-01", "bus"}, tbl.Rows[0])
}

func TestRewriteKeepsFileMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expense.csv")
	s := New(path)
	require.NoError(t, s.Ensure(ctx))
	require.NoError(t, os.Chmod(path, 0o640))
	require.NoError(t, s.Append(ctx, expense("a", "1", "X")))

	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Rewrite(ctx, tbl))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestRewriteNewFileIsWorldReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expense.csv")
	require.NoError(t, New(path).Rewrite(context.Background(), store.NewTable()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
