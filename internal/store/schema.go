package store

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Field is a logical column of the expense table.
type Field int

const (
	FieldDate Field = iota
	FieldDescription
	FieldAmount
	FieldCategory
	numFields
)

func (f Field) String() string {
	switch f {
	case FieldDate:
		return "date"
	case FieldDescription:
		return "description"
	case FieldAmount:
		return "amount"
	case FieldCategory:
		return "category"
	default:
		return "unknown"
	}
}

// Header aliases, compared after trimming and lowercasing.
var fieldAliases = [numFields][]string{
	FieldDate:        {"date"},
	FieldDescription: {"description"},
	FieldAmount:      {"amount"},
	FieldCategory:    {"predicted category", "category"},
}

// Schema maps logical fields to column indexes of a concrete header.
// A negative index means the column is absent.
type Schema struct {
	cols [numFields]int
}

// Record is a row read through a Schema.
type Record struct {
	Index       int
	Date        time.Time
	DateOK      bool
	Description string
	Amount      decimal.NullDecimal
	Category    string
}

// ResolveSchema locates the known columns in header. The first matching
// column wins when a header repeats a name.
func ResolveSchema(header []string) Schema {
	var s Schema
	for f := range s.cols {
		s.cols[f] = -1
	}
	for f, aliases := range fieldAliases {
	aliasLoop:
		for _, alias := range aliases {
			for i, h := range header {
				if strings.ToLower(strings.TrimSpace(h)) == alias {
					s.cols[f] = i
					break aliasLoop
				}
			}
		}
	}
	return s
}

// Column returns the index of f, or -1.
func (s Schema) Column(f Field) int {
	return s.cols[f]
}

func (s Schema) Has(f Field) bool {
	return s.cols[f] >= 0
}

// Missing returns which of fields are absent, in argument order.
func (s Schema) Missing(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		if !s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Cell returns the value of f in row, or "" if the column is absent.
func (s Schema) Cell(row Row, f Field) string {
	i := s.cols[f]
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Record decodes row. Unparseable dates and amounts are reported through
// DateOK and Amount.Valid rather than an error.
func (s Schema) Record(index int, row Row) Record {
	r := Record{
		Index:       index,
		Description: s.Cell(row, FieldDescription),
		Amount:      core.CoerceAmount(s.Cell(row, FieldAmount)),
		Category:    strings.TrimSpace(s.Cell(row, FieldCategory)),
	}
	r.Date, r.DateOK = core.ParseStoredDate(s.Cell(row, FieldDate))
	return r
}

// SetCell writes v into the f column of row; it is a no-op when the column is
// absent.
func (s Schema) SetCell(row Row, f Field, v string) {
	if i := s.cols[f]; i >= 0 && i < len(row) {
		row[i] = v
	}
}

// Layout places the fields of e into a new row shaped like header. Columns
// the schema does not know stay empty, so the row always matches the header
// arity.
func Layout(header []string, e core.Expense) Row {
	schema := ResolveSchema(header)
	row := make(Row, len(header))
	values := e.Row()
	for f := FieldDate; f < numFields; f++ {
		schema.SetCell(row, f, values[f])
	}
	return row
}
