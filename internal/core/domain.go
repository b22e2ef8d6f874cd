package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date layout used in the store.
const DateLayout = "2006-01-02"

// Column names written when a store is first created.
const (
	ColumnDate        = "Date"
	ColumnDescription = "Description"
	ColumnAmount      = "Amount"
	ColumnCategory    = "Predicted Category"
)

// Header returns the fixed header of a newly created store.
func Header() []string {
	return []string{ColumnDate, ColumnDescription, ColumnAmount, ColumnCategory}
}

type (
	// Expense is one persisted row of the store.
	Expense struct {
		Date        time.Time
		Description string // always normalized
		Amount      decimal.Decimal
		Category    string
	}

	// Entry is what the user typed into the form, before normalization
	// and classification.
	Entry struct {
		Description string
		Amount      decimal.Decimal
		Date        time.Time
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
)

// NormalizeDescription lowercases and trims a description. Applying it
// twice yields the same result as applying it once.
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate checks the form input. An error here is a user input error: the
// caller must surface it and must not touch the store.
func (e Entry) Validate() error {
	desc := NormalizeDescription(e.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !inRange(e.Amount) {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ToExpense builds the record that gets appended for this entry.
func (e Entry) ToExpense(category string) Expense {
	return Expense{
		Date:        e.Date,
		Description: NormalizeDescription(e.Description),
		Amount:      e.Amount,
		Category:    category,
	}
}

// Row renders the expense in store column order.
func (e Expense) Row() []string {
	return []string{
		e.Date.Format(DateLayout),
		e.Description,
		FormatAmount(e.Amount),
		e.Category,
	}
}

// ParseDate parses a YYYY-MM-DD date. An empty string yields today.
func ParseDate(s string, today time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := today.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseStoredDate is the lenient variant used on loaded rows; it also
// accepts a timestamp suffix written by other tools.
func ParseStoredDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
