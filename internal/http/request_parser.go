package http

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/session"
)

// Form field names shared with the templates.
const (
	fieldDescription = "description"
	fieldAmount      = "amount"
	fieldDate        = "date"
	fieldCategory    = "category"
	fieldFiltered    = "filtered"
	fieldFrom        = "from"
	fieldTo          = "to"
	fieldConfirm     = "confirm"
	fieldRow         = "row"
	correctionPrefix = "category_"
)

// EntryForm keeps the raw submitted values so a rejected form can be shown
// again as typed.
type EntryForm struct {
	Description string
	Amount      string
	Date        string
}

// ParseEntryForm extracts the submission fields.
func ParseEntryForm(form url.Values) EntryForm {
	return EntryForm{
		Description: sanitizeInput(form.Get(fieldDescription)),
		Amount:      sanitizeInput(form.Get(fieldAmount)),
		Date:        sanitizeInput(form.Get(fieldDate)),
	}
}

// Entry converts the form into a core.Entry. Validation of the description
// is left to the session.
func (f EntryForm) Entry(today time.Time) (core.Entry, error) {
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.Entry{}, err
	}
	date, err := core.ParseDate(f.Date, today)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{Description: f.Description, Amount: amount, Date: date}, nil
}

// ParseFilter reads the view filter from the query string. Without
// filtered=1 every category is selected; with it, only the listed ones.
// A malformed date drops the range and yields a warning.
func ParseFilter(query url.Values) (session.Filter, []session.Notice) {
	var f session.Filter
	var notices []session.Notice

	if query.Get(fieldFiltered) == "1" {
		f.Categories = []string{}
		for _, c := range query[fieldCategory] {
			if c = sanitizeInput(c); c != "" {
				f.Categories = append(f.Categories, c)
			}
		}
	}

	from, fromErr := parseOptionalDate(query.Get(fieldFrom))
	to, toErr := parseOptionalDate(query.Get(fieldTo))
	switch {
	case fromErr != nil || toErr != nil:
		notices = append(notices, session.Warning("Date filter ignored: use YYYY-MM-DD for both dates."))
	case !from.IsZero() && !to.IsZero() && to.Before(from):
		notices = append(notices, session.Warning("Date filter ignored: the end date is before the start date."))
	default:
		f.From, f.To = from, to
	}
	return f, notices
}

func parseOptionalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(core.DateLayout, s)
}

// ParseCorrections collects category_<row> fields into row index → category.
func ParseCorrections(form url.Values) (map[int]string, error) {
	updates := make(map[int]string)
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !strings.HasPrefix(k, correctionPrefix) {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(k, correctionPrefix))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid correction field %q", k)
		}
		updates[idx] = sanitizeInput(form.Get(k))
	}
	return updates, nil
}

// ParseRowIndex reads the row to delete.
func ParseRowIndex(form url.Values) (int, error) {
	v := strings.TrimSpace(form.Get(fieldRow))
	idx, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid row %q", v)
	}
	return idx, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
