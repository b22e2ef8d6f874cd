package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// Filter narrows the rows shown and aggregated in one pass. It never affects
// the store.
type Filter struct {
	// Categories to keep. Nil means every known category; an empty non-nil
	// slice keeps nothing.
	Categories []string
	// The date range applies only when both ends are set. Both ends are
	// inclusive.
	From, To time.Time
}

// DateRangeActive reports whether both ends of the range are set.
func (f Filter) DateRangeActive() bool {
	return !f.From.IsZero() && !f.To.IsZero()
}

type (
	// DisplayRow is one table row with its position in the store.
	DisplayRow struct {
		Index int
		Cells []string
	}

	// Bar is one bar of the category chart. Percent is relative to the
	// largest category total.
	Bar struct {
		Category string
		Total    string
		Percent  float64
	}

	// CorrectionRow offers a category reassignment for one stored row.
	CorrectionRow struct {
		Index       int
		Description string
		Amount      string
		Current     string
		Options     []string
	}

	// View is everything rendered in one pass.
	View struct {
		Notices []Notice

		// Ready is false when a required column is missing; the sections
		// below are then left empty.
		Ready bool

		CategoryOptions []string
		Selected        map[string]bool
		Filter          Filter

		Header []string
		Rows   []DisplayRow

		Summary core.Summary
		Total   string
		Totals  []Bar

		CorrectionNotices []Notice
		Corrections       []CorrectionRow

		DeleteNotices []Notice
		DeleteHeader  []string
		DeleteRows    []DisplayRow
	}
)

// Render loads the store and builds the view for f.
func (s *Session) Render(ctx context.Context, f Filter) (*View, error) {
	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}

	v := &View{Filter: f, Header: snapshot.Header}
	schema := store.ResolveSchema(snapshot.Header)
	if len(schema.Missing(store.FieldCategory, store.FieldAmount)) > 0 {
		v.Notices = append(v.Notices, Warning("Required columns ('category' and/or 'amount') are missing."))
		return v, nil
	}
	v.Ready = true

	records := make([]store.Record, snapshot.Len())
	for i, row := range snapshot.Rows {
		records[i] = schema.Record(i, row)
	}

	v.CategoryOptions = distinctCategories(records)
	selected := f.Categories
	if selected == nil {
		selected = v.CategoryOptions
	}
	v.Selected = make(map[string]bool, len(selected))
	for _, c := range selected {
		v.Selected[c] = true
	}

	dateFilter := f.DateRangeActive()
	if dateFilter && !schema.Has(store.FieldDate) {
		v.Notices = append(v.Notices, Warning("Date filter ignored: the store has no date column."))
		dateFilter = false
	}

	var amounts []core.Amount
	for i, r := range records {
		if !v.Selected[r.Category] {
			continue
		}
		if dateFilter && !inRange(r, f.From, f.To) {
			continue
		}
		v.Rows = append(v.Rows, DisplayRow{Index: i, Cells: snapshot.Rows[i]})
		amounts = append(amounts, core.Amount{Category: r.Category, Value: r.Amount})
	}

	v.Summary = core.Summarize(amounts)
	v.Total = core.FormatAmount(v.Summary.Total)
	v.Totals = bars(v.Summary.ByCategory)
	if v.Summary.Skipped > 0 {
		v.Notices = append(v.Notices, Warning("%d row(s) with a non-numeric amount were left out of the totals.", v.Summary.Skipped))
	}

	s.buildCorrections(v, schema, snapshot, records)

	if err := s.buildDeletion(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Session) buildCorrections(v *View, schema store.Schema, snapshot *store.Table, records []store.Record) {
	if !schema.Has(store.FieldDescription) {
		v.CorrectionNotices = append(v.CorrectionNotices, Warning("Could not find 'Description' column in your CSV."))
		return
	}

	options := union(v.CategoryOptions, s.predictor.Labels())
	for _, r := range records {
		amount := schema.Cell(snapshot.Rows[r.Index], store.FieldAmount)
		if r.Amount.Valid {
			amount = core.FormatAmount(r.Amount.Decimal)
		}
		opts := options
		if r.Category == "" {
			opts = append([]string{""}, options...)
		}
		v.Corrections = append(v.Corrections, CorrectionRow{
			Index:       r.Index,
			Description: r.Description,
			Amount:      amount,
			Current:     r.Category,
			Options:     opts,
		})
	}
}

// buildDeletion reads the store again so the deletion table reflects what
// is on disk now.
func (s *Session) buildDeletion(ctx context.Context, v *View) error {
	fresh, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	if fresh.Len() == 0 {
		v.DeleteNotices = append(v.DeleteNotices, Info("No entries available to delete."))
		return nil
	}
	v.DeleteHeader = fresh.Header
	for i, row := range fresh.Rows {
		v.DeleteRows = append(v.DeleteRows, DisplayRow{Index: i, Cells: row})
	}
	return nil
}

func inRange(r store.Record, from, to time.Time) bool {
	if !r.DateOK {
		return false
	}
	return !r.Date.Before(from) && !r.Date.After(to)
}

func distinctCategories(records []store.Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok || v == "" {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func bars(totals []core.CategoryTotal) []Bar {
	top := decimal.Zero
	for _, t := range totals {
		if t.Total.GreaterThan(top) {
			top = t.Total
		}
	}
	out := make([]Bar, len(totals))
	for i, t := range totals {
		out[i] = Bar{Category: t.Category, Total: core.FormatAmount(t.Total)}
		if top.IsPositive() && t.Total.IsPositive() {
			out[i].Percent = t.Total.Div(top).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
	}
	return out
}
