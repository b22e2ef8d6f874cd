package http

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func TestEntryForm(t *testing.T) {
	today := time.Date(2024, 5, 10, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		name     string
		form     url.Values
		wantErr  error
		wantDate string
		wantAmt  string
	}{
		{
			name:     "all fields",
			form:     url.Values{"description": {" Lunch "}, "amount": {"12,50"}, "date": {"2024-05-01"}},
			wantDate: "2024-05-01",
			wantAmt:  "12.5",
		},
		{
			name:     "blank date means today",
			form:     url.Values{"description": {"Taxi"}, "amount": {"8"}},
			wantDate: "2024-05-10",
			wantAmt:  "8",
		},
		{
			name:     "blank amount is zero",
			form:     url.Values{"description": {"Gift"}},
			wantDate: "2024-05-10",
			wantAmt:  "0",
		},
		{
			name:    "garbage amount",
			form:    url.Values{"description": {"x"}, "amount": {"abc"}},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "bad date",
			form:    url.Values{"description": {"x"}, "amount": {"1"}, "date": {"10/05/2024"}},
			wantErr: core.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ParseEntryForm(tt.form).Entry(today)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := entry.Date.Format(core.DateLayout); got != tt.wantDate {
				t.Errorf("date = %s, want %s", got, tt.wantDate)
			}
			if got := entry.Amount.String(); got != tt.wantAmt {
				t.Errorf("amount = %s, want %s", got, tt.wantAmt)
			}
		})
	}
}

func TestParseEntryFormSanitizes(t *testing.T) {
	f := ParseEntryForm(url.Values{"description": {"  bus\x00 ticket\x07 "}})
	if f.Description != "bus ticket" {
		t.Errorf("Description = %q", f.Description)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name        string
		query       url.Values
		wantNil     bool
		wantCats    []string
		wantActive  bool
		wantNotices int
	}{
		{name: "no filter", query: url.Values{}, wantNil: true},
		{
			name:     "selected categories",
			query:    url.Values{"filtered": {"1"}, "category": {"food", " ", "rent"}},
			wantCats: []string{"food", "rent"},
		},
		{
			name:     "filter submitted with nothing checked",
			query:    url.Values{"filtered": {"1"}},
			wantCats: []string{},
		},
		{
			name:       "full date range",
			query:      url.Values{"from": {"2024-01-01"}, "to": {"2024-01-31"}},
			wantNil:    true,
			wantActive: true,
		},
		{
			name:    "half range stays inactive",
			query:   url.Values{"from": {"2024-01-01"}},
			wantNil: true,
		},
		{
			name:        "malformed date",
			query:       url.Values{"from": {"yesterday"}, "to": {"2024-01-31"}},
			wantNil:     true,
			wantNotices: 1,
		},
		{
			name:        "reversed range",
			query:       url.Values{"from": {"2024-02-01"}, "to": {"2024-01-01"}},
			wantNil:     true,
			wantNotices: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, notices := ParseFilter(tt.query)
			if tt.wantNil != (f.Categories == nil) {
				t.Fatalf("Categories = %#v, wantNil %v", f.Categories, tt.wantNil)
			}
			if !tt.wantNil {
				if len(f.Categories) != len(tt.wantCats) {
					t.Fatalf("Categories = %v, want %v", f.Categories, tt.wantCats)
				}
				for i := range tt.wantCats {
					if f.Categories[i] != tt.wantCats[i] {
						t.Errorf("Categories[%d] = %q, want %q", i, f.Categories[i], tt.wantCats[i])
					}
				}
			}
			if f.DateRangeActive() != tt.wantActive {
				t.Errorf("DateRangeActive = %v, want %v", f.DateRangeActive(), tt.wantActive)
			}
			if len(notices) != tt.wantNotices {
				t.Errorf("notices = %v, want %d", notices, tt.wantNotices)
			}
		})
	}
}

func TestParseCorrections(t *testing.T) {
	got, err := ParseCorrections(url.Values{
		"category_0": {"food"},
		"category_3": {" rent "},
		"confirm":    {"1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "food" || got[3] != "rent" {
		t.Errorf("got %v", got)
	}

	if _, err := ParseCorrections(url.Values{"category_x": {"food"}}); err == nil {
		t.Error("expected error for non-numeric index")
	}
	if _, err := ParseCorrections(url.Values{"category_-1": {"food"}}); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestParseRowIndex(t *testing.T) {
	if idx, err := ParseRowIndex(url.Values{"row": {" 2 "}}); err != nil || idx != 2 {
		t.Errorf("got %d, %v", idx, err)
	}
	for _, v := range []string{"", "two", "1.5"} {
		if _, err := ParseRowIndex(url.Values{"row": {v}}); err == nil {
			t.Errorf("expected error for %q", v)
		}
	}
}
