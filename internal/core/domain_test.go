package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeDescriptionIdempotent(t *testing.T) {
	for _, in := range []string{"  Coffee  ", "TAXI to Airport", "", "already lower"} {
		once := NormalizeDescription(in)
		if twice := NormalizeDescription(once); twice != once {
			t.Fatalf("%q: %q != %q", in, once, twice)
		}
	}
	if got := NormalizeDescription("  Coffee Beans "); got != "coffee beans" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestEntryValidate(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		e    Entry
		err  error
	}{
		{"ok", Entry{Description: "coffee", Amount: decimal.NewFromInt(3), Date: day}, nil},
		{"zero amount ok", Entry{Description: "free sample", Amount: decimal.Zero, Date: day}, nil},
		{"blank", Entry{Description: "   ", Amount: decimal.NewFromInt(3), Date: day}, ErrEmptyDescription},
		{"long description ok", Entry{Description: strings.Repeat("groceries ", 60), Date: day}, nil},
		{"huge amount", Entry{Description: "x", Amount: decimal.New(1, 400000000), Date: day}, ErrInvalidAmount},
		{"negative", Entry{Description: "x", Amount: decimal.NewFromInt(-1), Date: day}, ErrNegativeAmount},
		{"no date", Entry{Description: "x"}, ErrInvalidDate},
	}
	for _, tc := range cases {
		err := tc.e.Validate()
		if tc.err == nil && err != nil {
			t.Fatalf("%s: expected ok, got %v", tc.name, err)
		}
		if tc.err != nil && !errors.Is(err, tc.err) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
	}
}

func TestExpenseRow(t *testing.T) {
	e := Entry{Description: " Lunch ", Amount: decimal.RequireFromString("12.5"), Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}.ToExpense("Food")
	got := strings.Join(e.Row(), "|")
	if got != "2024-05-01|lunch|12.50|Food" {
		t.Fatalf("unexpected row %q", got)
	}
}

func TestParseDate(t *testing.T) {
	today := time.Date(2024, 6, 9, 15, 4, 5, 0, time.UTC)
	d, err := ParseDate("", today)
	if err != nil || d.Format(DateLayout) != "2024-06-09" {
		t.Fatalf("empty should default to today, got %v %v", d, err)
	}
	if _, err := ParseDate("09/06/2024", today); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, ok := ParseStoredDate("2024-06-09 00:00:00"); !ok {
		t.Fatalf("expected timestamp suffix to parse")
	}
	if _, ok := ParseStoredDate("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}
