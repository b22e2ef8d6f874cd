// Package worker keeps a spreadsheet copy of the expense store up to date.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"expensetracker/internal/amqp"
	"expensetracker/internal/sheets"
	"expensetracker/internal/store"
)

// Source is where snapshots are read from.
type Source interface {
	Load(ctx context.Context) (*store.Table, error)
}

// EventSource delivers store change events until ctx is done.
type EventSource interface {
	ConsumeStoreEvents(ctx context.Context, handler func(context.Context, *amqp.StoreEvent) error) error
}

// MirrorWorker pushes full snapshots of the store to a SnapshotWriter. Every
// push replaces the whole sheet, so any sync repairs all earlier misses.
type MirrorWorker struct {
	source Source
	writer sheets.SnapshotWriter
	logger *slog.Logger

	group    singleflight.Group
	synced   atomic.Int64
	failed   atomic.Int64
	lastRows atomic.Int64
	lastSync atomic.Int64 // unix nanos
}

// Stats is a point-in-time view of the worker's counters.
type Stats struct {
	Synced   int64
	Failed   int64
	LastRows int64
	LastSync time.Time
}

func NewMirrorWorker(source Source, writer sheets.SnapshotWriter, logger *slog.Logger) *MirrorWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorWorker{source: source, writer: writer, logger: logger}
}

// Sync loads the store and replaces the mirrored sheet. Concurrent calls
// share one push.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	ch := w.group.DoChan("mirror", func() (any, error) {
		return nil, w.push(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (w *MirrorWorker) push(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	t, err := w.source.Load(ctx)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("load store: %w", err)
	}
	if err := w.writer.ReplaceAll(ctx, t); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("replace sheet: %w", err)
	}

	w.synced.Add(1)
	w.lastRows.Store(int64(t.Len()))
	w.lastSync.Store(time.Now().UnixNano())
	w.logger.InfoContext(ctx, "Store mirrored", "rows", t.Len())
	return nil
}

// HandleEvent mirrors the store after a change event. A failed push is only
// logged: the periodic reconciliation retries it, and requeueing the event
// would spin while the sheet is unreachable.
func (w *MirrorWorker) HandleEvent(ctx context.Context, evt *amqp.StoreEvent) error {
	w.logger.InfoContext(ctx, "Processing store event",
		"id", evt.ID,
		"kind", evt.Kind,
		"rows", evt.Rows)

	if err := w.Sync(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.ErrorContext(ctx, "Mirror after event failed", "id", evt.ID, "error", err)
	}
	return nil
}

// Run syncs once, then mirrors on every event from events (when non-nil) and
// every interval until ctx is done. It returns nil on cancellation.
func (w *MirrorWorker) Run(ctx context.Context, events EventSource, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("mirror interval must be positive")
	}

	if err := w.Sync(ctx); err != nil && ctx.Err() == nil {
		w.logger.WarnContext(ctx, "Startup mirror failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if events != nil {
		g.Go(func() error {
			return events.ConsumeStoreEvents(gctx, w.HandleEvent)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := w.Sync(gctx); err != nil && gctx.Err() == nil {
					w.logger.WarnContext(gctx, "Periodic mirror failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}
	return err
}

func (w *MirrorWorker) Stats() Stats {
	s := Stats{
		Synced:   w.synced.Load(),
		Failed:   w.failed.Load(),
		LastRows: w.lastRows.Load(),
	}
	if ns := w.lastSync.Load(); ns > 0 {
		s.LastSync = time.Unix(0, ns)
	}
	return s
}
