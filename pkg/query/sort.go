package query

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sort names a public sort field and direction.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort reads "field" or "-field" and "field:asc|desc" forms.
func ParseSort(raw string) Sort {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sort{}
	}
	if strings.HasPrefix(raw, "-") {
		return Sort{Field: strings.TrimPrefix(raw, "-"), Desc: true}
	}
	field, dir, found := strings.Cut(raw, ":")
	if found {
		return Sort{Field: field, Desc: strings.EqualFold(dir, "desc")}
	}
	return Sort{Field: field}
}

// ResolveSort returns the column to order by. Fields outside the allow-list
// fall back to the schema default.
func (s Schema) ResolveSort(sort Sort) (column string, desc bool) {
	if col, ok := s.SortColumns[sort.Field]; ok {
		return col, sort.Desc
	}
	return s.SortColumns[s.DefaultSort.Field], s.DefaultSort.Desc
}

// ApplySort orders db by the resolved column with id as a stable tiebreaker.
func (s Schema) ApplySort(db *gorm.DB, sort Sort) *gorm.DB {
	column, desc := s.ResolveSort(sort)
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
}
