package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names the store mutation an event reports.
type EventKind string

const (
	EventExpenseCreated       EventKind = "expense.created"
	EventExpenseRecategorized EventKind = "expense.recategorized"
	EventExpenseDeleted       EventKind = "expense.deleted"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventExpenseCreated, EventExpenseRecategorized, EventExpenseDeleted:
		return true
	default:
		return false
	}
}

// StoreEvent is a lightweight notification that the expense store changed.
// Consumers reload the store rather than trusting the payload.
type StoreEvent struct {
	ID        uuid.UUID `json:"id"`
	Kind      EventKind `json:"kind"`
	Rows      []int     `json:"rows,omitempty"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStoreEvent creates an event with a fresh ID.
func NewStoreEvent(kind EventKind, rows ...int) *StoreEvent {
	return &StoreEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *StoreEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// StoreEventFromJSON decodes and validates an event.
func StoreEventFromJSON(data []byte) (*StoreEvent, error) {
	var e StoreEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Kind.IsValid() {
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return &e, nil
}
