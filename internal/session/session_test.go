package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/store"
	"expensetracker/internal/store/memory"
)

type stubPredictor struct {
	m      map[string]string
	labels []string
}

func (p stubPredictor) Predict(d string) string {
	if c, ok := p.m[d]; ok {
		return c
	}
	return "other"
}

func (p stubPredictor) Labels() []string { return p.labels }

type recordingPublisher struct {
	events []*amqp.StoreEvent
	err    error
}

func (p *recordingPublisher) PublishStoreEvent(_ context.Context, evt *amqp.StoreEvent) error {
	p.events = append(p.events, evt)
	return p.err
}

func day(s string) time.Time {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newSession(t *testing.T, seed *store.Table) (*Session, *store.Mediator, *recordingPublisher) {
	t.Helper()
	m := store.NewMediator(memory.New(seed))
	require.NoError(t, m.Ensure(context.Background()))
	pub := &recordingPublisher{}
	p := stubPredictor{
		m:      map[string]string{"coffee shop": "food", "taxi": "transport"},
		labels: []string{"food", "other", "transport"},
	}
	return New(m, p, WithPublisher(pub)), m, pub
}

func table(rows ...store.Row) *store.Table {
	return &store.Table{Header: core.Header(), Rows: rows}
}

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	s, m, pub := newSession(t, nil)

	exp, err := s.Submit(ctx, core.Entry{
		Description: "  Coffee Shop  ",
		Amount:      decimal.RequireFromString("4.50"),
		Date:        day("2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "food", exp.Category)
	assert.Equal(t, "Expense added under 'food' category.", AddedNotice(exp).Message)

	tbl, err := m.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, store.Row{"2024-01-01", "coffee shop", "4.50", "food"}, tbl.Rows[0])

	v, err := s.Render(ctx, Filter{Categories: []string{"food"}, From: day("2024-01-01"), To: day("2024-01-01")})
	require.NoError(t, err)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "coffee shop", v.Rows[0].Cells[1])
	assert.Equal(t, "4.50", v.Total)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventExpenseCreated, pub.events[0].Kind)
	assert.Equal(t, "food", pub.events[0].Category)
}

func TestSubmitRejectsBlankDescription(t *testing.T) {
	ctx := context.Background()
	s, m, pub := newSession(t, table(store.Row{"2024-01-01", "tea", "1.00", "food"}))

	_, err := s.Submit(ctx, core.Entry{Description: "   ", Date: day("2024-01-02")})
	require.ErrorIs(t, err, core.ErrEmptyDescription)
	assert.True(t, IsUserError(err))
	assert.Equal(t, "Please enter a description.", UserMessage(err))

	tbl, _ := m.Load(ctx)
	assert.Equal(t, 1, tbl.Len())
	assert.Empty(t, pub.events)
}

func TestSubmitKeepsPriorRows(t *testing.T) {
	ctx := context.Background()
	prior := []store.Row{
		{"2024-01-01", "tea", "1.00", "food"},
		{"2024-01-02", "bus", "2.00", "transport"},
	}
	s, m, pub := newSession(t, table(prior...))
	pub.err = errors.New("broker down")

	_, err := s.Submit(ctx, core.Entry{Description: "Taxi", Amount: decimal.NewFromInt(12), Date: day("2024-01-03")})
	require.NoError(t, err, "publishing failures must not fail the submission")

	tbl, _ := m.Load(ctx)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, prior, tbl.Rows[:2])
	assert.Equal(t, store.Row{"2024-01-03", "taxi", "12.00", "transport"}, tbl.Rows[2])
}

func TestRenderAggregates(t *testing.T) {
	s, _, _ := newSession(t, table(
		store.Row{"2024-01-01", "lunch", "10.00", "food"},
		store.Row{"2024-01-02", "dinner", "25.50", "food"},
		store.Row{"2024-01-03", "walk", "0.00", "transport"},
	))

	v, err := s.Render(context.Background(), Filter{})
	require.NoError(t, err)
	require.True(t, v.Ready)
	assert.Equal(t, []string{"food", "transport"}, v.CategoryOptions)
	assert.Len(t, v.Rows, 3)
	assert.Equal(t, "35.50", v.Total)
	require.Len(t, v.Summary.ByCategory, 2)
	assert.Equal(t, "food", v.Summary.ByCategory[0].Category)
	assert.Equal(t, "35.5", v.Summary.ByCategory[0].Total.String())
	assert.Equal(t, "transport", v.Summary.ByCategory[1].Category)
	assert.True(t, v.Summary.ByCategory[1].Total.IsZero())

	require.Len(t, v.Totals, 2)
	assert.Equal(t, 100.0, v.Totals[0].Percent)
	assert.Zero(t, v.Totals[1].Percent)
}

func TestRenderMissingColumns(t *testing.T) {
	s, _, _ := newSession(t, &store.Table{
		Header: []string{"Date", "Description", "Cost"},
		Rows:   []store.Row{{"2024-01-01", "tea", "1"}},
	})

	v, err := s.Render(context.Background(), Filter{})
	require.NoError(t, err)
	assert.False(t, v.Ready)
	require.Len(t, v.Notices, 1)
	assert.Equal(t, LevelWarning, v.Notices[0].Level)
	assert.Empty(t, v.Rows)
	assert.Empty(t, v.Corrections)
	assert.Empty(t, v.DeleteRows)
}

func TestRenderFilters(t *testing.T) {
	s, _, _ := newSession(t, table(
		store.Row{"2024-01-01", "tea", "1.00", "food"},
		store.Row{"2024-01-05", "bus", "2.00", "transport"},
		store.Row{"someday", "cake", "3.00", "food"},
		store.Row{"2024-01-02", "mystery", "4.00", ""},
		store.Row{"2024-01-03", "rent", "abc", "housing"},
	))
	ctx := context.Background()

	t.Run("default shows every known category", func(t *testing.T) {
		v, err := s.Render(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"food", "housing", "transport"}, v.CategoryOptions)
		assert.Len(t, v.Rows, 4, "row without a category is not listed")
		assert.Equal(t, "6.00", v.Total)
		assert.Equal(t, 1, v.Summary.Skipped)
		require.NotEmpty(t, v.Notices)
		assert.Equal(t, LevelWarning, v.Notices[0].Level)
		assert.Len(t, v.Corrections, 5, "corrections cover every stored row")
	})

	t.Run("category subset", func(t *testing.T) {
		v, err := s.Render(ctx, Filter{Categories: []string{"food"}})
		require.NoError(t, err)
		assert.Len(t, v.Rows, 2)
		assert.Equal(t, "4.00", v.Total)
		assert.True(t, v.Selected["food"])
		assert.False(t, v.Selected["transport"])
	})

	t.Run("empty selection keeps nothing", func(t *testing.T) {
		v, err := s.Render(ctx, Filter{Categories: []string{}})
		require.NoError(t, err)
		assert.Empty(t, v.Rows)
		assert.Equal(t, "0.00", v.Total)
	})

	t.Run("date range is inclusive and drops bad dates", func(t *testing.T) {
		v, err := s.Render(ctx, Filter{From: day("2024-01-01"), To: day("2024-01-03")})
		require.NoError(t, err)
		var descs []string
		for _, r := range v.Rows {
			descs = append(descs, r.Cells[1])
		}
		assert.Equal(t, []string{"tea", "rent"}, descs)
	})

	t.Run("half-open range is ignored", func(t *testing.T) {
		v, err := s.Render(ctx, Filter{From: day("2024-01-04")})
		require.NoError(t, err)
		assert.Len(t, v.Rows, 4)
	})
}

func TestRenderDateFilterWithoutDateColumn(t *testing.T) {
	s, _, _ := newSession(t, &store.Table{
		Header: []string{"Description", "Amount", "Category"},
		Rows:   []store.Row{{"tea", "1", "food"}},
	})
	v, err := s.Render(context.Background(), Filter{From: day("2024-01-01"), To: day("2024-01-31")})
	require.NoError(t, err)
	assert.Len(t, v.Rows, 1)
	require.NotEmpty(t, v.Notices)
	assert.Contains(t, v.Notices[0].Message, "no date column")
}

func TestRenderCorrections(t *testing.T) {
	s, _, _ := newSession(t, table(
		store.Row{"2024-01-01", "tea", "1", "drinks"},
		store.Row{"2024-01-02", "??", "x", ""},
	))
	v, err := s.Render(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, v.Corrections, 2)

	first := v.Corrections[0]
	assert.Equal(t, "drinks", first.Current)
	assert.Equal(t, "1.00", first.Amount)
	assert.Equal(t, []string{"drinks", "food", "other", "transport"}, first.Options)

	second := v.Corrections[1]
	assert.Equal(t, "x", second.Amount)
	assert.Equal(t, "", second.Options[0])
}

func TestRenderCorrectionsWithoutDescription(t *testing.T) {
	s, _, _ := newSession(t, &store.Table{
		Header: []string{"Date", "Amount", "Category"},
		Rows:   []store.Row{{"2024-01-01", "1", "food"}},
	})
	v, err := s.Render(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, v.Corrections)
	require.Len(t, v.CorrectionNotices, 1)
	assert.Equal(t, "Could not find 'Description' column in your CSV.", v.CorrectionNotices[0].Message)
	assert.Len(t, v.DeleteRows, 1)
}

func TestRenderEmptyStore(t *testing.T) {
	s, _, _ := newSession(t, nil)
	v, err := s.Render(context.Background(), Filter{})
	require.NoError(t, err)
	assert.True(t, v.Ready)
	assert.Empty(t, v.DeleteRows)
	require.Len(t, v.DeleteNotices, 1)
	assert.Equal(t, Notice{Level: LevelInfo, Message: "No entries available to delete."}, v.DeleteNotices[0])
}

func TestRecategorize(t *testing.T) {
	ctx := context.Background()
	s, m, pub := newSession(t, table(
		store.Row{"2024-01-01", "tea", "1.00", "food"},
		store.Row{"2024-01-02", "bus", "2.00", "food"},
	))

	n, err := s.Recategorize(ctx, map[int]string{0: "food", 1: "transport"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tbl, _ := m.Load(ctx)
	assert.Equal(t, store.Row{"2024-01-02", "bus", "2.00", "transport"}, tbl.Rows[1])
	assert.Equal(t, store.Row{"2024-01-01", "tea", "1.00", "food"}, tbl.Rows[0])
	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventExpenseRecategorized, pub.events[0].Kind)
	assert.Equal(t, []int{1}, pub.events[0].Rows, "only changed rows are reported")

	n, err = s.Recategorize(ctx, map[int]string{0: "food", 1: " "})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.events, 1, "no event without a change")

	_, err = s.Recategorize(ctx, map[int]string{5: "food"})
	assert.ErrorIs(t, err, store.ErrRowOutOfRange)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, m, pub := newSession(t, table(
		store.Row{"2024-01-01", "a", "1", "x"},
		store.Row{"2024-01-02", "b", "2", "y"},
		store.Row{"2024-01-03", "c", "3", "z"},
	))

	row, err := s.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", row[1])
	tbl, _ := m.Load(ctx)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "a", tbl.Rows[0][1])
	assert.Equal(t, "c", tbl.Rows[1][1])

	_, err = s.Delete(ctx, 2)
	require.ErrorIs(t, err, store.ErrRowOutOfRange)
	assert.True(t, IsUserError(err))
	tbl, _ = m.Load(ctx)
	assert.Equal(t, 2, tbl.Len())

	require.Len(t, pub.events, 1)
	assert.Equal(t, []int{1}, pub.events[0].Rows)
}

func TestReady(t *testing.T) {
	s, _, _ := newSession(t, nil)
	assert.NoError(t, s.Ready(context.Background()))

	empty := New(store.NewMediator(memory.New(nil)), stubPredictor{})
	assert.Error(t, empty.Ready(context.Background()))
}
