package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the spend aggregated for one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// Summary is the aggregate shown under the expense table.
type Summary struct {
	Total      decimal.Decimal
	ByCategory []CategoryTotal // descending by Total
	Counted    int
	Skipped    int // rows whose amount was not numeric
}

// Amount pairs a category with a possibly-missing amount.
type Amount struct {
	Category string
	Value    decimal.NullDecimal
}

// Summarize sums amounts overall and per category. Missing amounts are
// excluded from every sum; a category whose amounts are all missing is still
// listed with a zero total. Ties are broken by category name.
func Summarize(amounts []Amount) Summary {
	s := Summary{Total: decimal.Zero}
	idx := make(map[string]int)
	for _, a := range amounts {
		i, ok := idx[a.Category]
		if !ok {
			i = len(s.ByCategory)
			idx[a.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryTotal{Category: a.Category, Total: decimal.Zero})
		}
		if !a.Value.Valid {
			s.Skipped++
			continue
		}
		s.Counted++
		s.Total = s.Total.Add(a.Value.Decimal)
		s.ByCategory[i].Total = s.ByCategory[i].Total.Add(a.Value.Decimal)
		s.ByCategory[i].Count++
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		if c := s.ByCategory[i].Total.Cmp(s.ByCategory[j].Total); c != 0 {
			return c > 0
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})
	return s
}
