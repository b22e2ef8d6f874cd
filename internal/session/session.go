// Package session implements one pass of the expense tracker: submitting an
// expense, rendering the filtered view with totals, and the correction and
// deletion actions. Every pass starts from a fresh load of the store; nothing
// is carried between passes.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/classifier"
	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// Publisher receives a notification after each store mutation.
type Publisher interface {
	PublishStoreEvent(ctx context.Context, evt *amqp.StoreEvent) error
}

type Session struct {
	store     *store.Mediator
	predictor classifier.Predictor
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPublisher enables store events. A nil publisher disables them.
func WithPublisher(p Publisher) Option {
	return func(s *Session) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func New(m *store.Mediator, p classifier.Predictor, opts ...Option) *Session {
	s := &Session{
		store:     m,
		predictor: p,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready checks that the store can be loaded and the model knows at least one
// category.
func (s *Session) Ready(ctx context.Context) error {
	if _, err := s.store.Load(ctx); err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	if len(s.predictor.Labels()) == 0 {
		return fmt.Errorf("model has no categories")
	}
	return nil
}

// Today is the default date for new entries.
func (s *Session) Today() time.Time {
	return s.now()
}

// Submit validates, classifies and appends one expense. A validation error
// leaves the store untouched.
func (s *Session) Submit(ctx context.Context, e core.Entry) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	desc := core.NormalizeDescription(e.Description)
	exp := e.ToExpense(s.predictor.Predict(desc))

	if err := s.store.Append(ctx, exp); err != nil {
		return core.Expense{}, fmt.Errorf("append expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense added",
		"description", exp.Description,
		"amount", core.FormatAmount(exp.Amount),
		"category", exp.Category)

	evt := amqp.NewStoreEvent(amqp.EventExpenseCreated)
	evt.Category = exp.Category
	s.publish(ctx, evt)
	return exp, nil
}

// Recategorize writes the given category per row index in one rewrite and
// returns how many rows changed. Blank categories are ignored.
func (s *Session) Recategorize(ctx context.Context, updates map[int]string) (int, error) {
	clean := make(map[int]string, len(updates))
	for i, c := range updates {
		if c = strings.TrimSpace(c); c != "" {
			clean[i] = c
		}
	}

	changed, err := s.store.UpdateCategories(ctx, clean)
	if err != nil {
		return 0, err
	}
	if len(changed) > 0 {
		s.logger.InfoContext(ctx, "Categories updated", "changed", len(changed))
		s.publish(ctx, amqp.NewStoreEvent(amqp.EventExpenseRecategorized, changed...))
	}
	return len(changed), nil
}

// Delete removes the row at index and returns it.
func (s *Session) Delete(ctx context.Context, index int) (store.Row, error) {
	row, err := s.store.DeleteRow(ctx, index)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Expense deleted", "row", index)
	s.publish(ctx, amqp.NewStoreEvent(amqp.EventExpenseDeleted, index))
	return row, nil
}

// publish is best effort: the store is already updated.
func (s *Session) publish(ctx context.Context, evt *amqp.StoreEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStoreEvent(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish store event",
			"kind", evt.Kind,
			"error", err)
	}
}
