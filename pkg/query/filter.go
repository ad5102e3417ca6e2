package query

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Operator is a comparison the query layer knows how to translate.
type Operator string

const (
	OpEq       Operator = "eq"
	OpContains Operator = "contains"
	OpIn       Operator = "in"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
)

// Filter is one declarative predicate: field, operator, value.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Kind describes the value type a field accepts.
type Kind int

const (
	KindString Kind = iota
	KindTime
)

// Field maps a public filter name onto a column and the operators it allows.
type Field struct {
	Column    string
	Kind      Kind
	Operators []Operator
	// Normalize optionally rewrites each scalar value, e.g. to canonical enum form.
	Normalize func(string) (string, error)
}

func (f Field) allows(op Operator) bool {
	for _, allowed := range f.Operators {
		if allowed == op {
			return true
		}
	}
	return false
}

// Clause is a rendered predicate ready for gorm's Where.
type Clause struct {
	SQL  string
	Args []any
}

// Schema is the allow-list of filterable and sortable fields for one table.
type Schema struct {
	Fields      map[string]Field
	SortColumns map[string]string
	DefaultSort Sort
}

// Build validates every filter and renders the clauses. All problems are
// reported together as a single validation error.
func (s Schema) Build(filters []Filter) ([]Clause, error) {
	var (
		clauses []Clause
		errs    error
	)
	for _, f := range filters {
		clause, err := s.clause(f)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		clauses = append(clauses, clause)
	}
	if errs != nil {
		problems := make([]string, 0)
		for _, e := range multierr.Errors(errs) {
			problems = append(problems, e.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errs, "invalid filter").
			WithDetails(map[string]any{"filters": problems})
	}
	return clauses, nil
}

// Apply adds the filters to db as AND-ed WHERE clauses.
func (s Schema) Apply(db *gorm.DB, filters []Filter) (*gorm.DB, error) {
	clauses, err := s.Build(filters)
	if err != nil {
		return nil, err
	}
	for _, c := range clauses {
		db = db.Where(c.SQL, c.Args...)
	}
	return db, nil
}

func (s Schema) clause(f Filter) (Clause, error) {
	spec, ok := s.Fields[f.Field]
	if !ok {
		return Clause{}, fmt.Errorf("%s: unknown field", f.Field)
	}
	if !spec.allows(f.Operator) {
		return Clause{}, fmt.Errorf("%s: operator %q not allowed", f.Field, f.Operator)
	}

	switch spec.Kind {
	case KindTime:
		ts, dateOnly, err := asTime(f.Value)
		if err != nil {
			return Clause{}, fmt.Errorf("%s: %w", f.Field, err)
		}
		if dateOnly && f.Operator == OpLte {
			// an upper bound given as a date covers that whole day
			return Clause{SQL: spec.Column + " < ?", Args: []any{ts.AddDate(0, 0, 1)}}, nil
		}
		return timeClause(spec.Column, f.Operator, ts)
	default:
		return stringClause(spec, f)
	}
}

func stringClause(spec Field, f Filter) (Clause, error) {
	switch f.Operator {
	case OpIn:
		values, err := asStrings(f.Value)
		if err != nil {
			return Clause{}, fmt.Errorf("%s: %w", f.Field, err)
		}
		if len(values) == 0 {
			return Clause{}, fmt.Errorf("%s: in requires at least one value", f.Field)
		}
		args := make([]string, 0, len(values))
		for _, v := range values {
			n, err := normalize(spec, v)
			if err != nil {
				return Clause{}, fmt.Errorf("%s: %w", f.Field, err)
			}
			args = append(args, n)
		}
		return Clause{SQL: spec.Column + " IN ?", Args: []any{args}}, nil
	case OpEq, OpContains:
		v, ok := f.Value.(string)
		if !ok {
			return Clause{}, fmt.Errorf("%s: expected a string value", f.Field)
		}
		v, err := normalize(spec, v)
		if err != nil {
			return Clause{}, fmt.Errorf("%s: %w", f.Field, err)
		}
		if f.Operator == OpEq {
			return Clause{SQL: spec.Column + " = ?", Args: []any{v}}, nil
		}
		pattern := "%" + EscapeLike(strings.ToLower(v)) + "%"
		return Clause{SQL: "LOWER(" + spec.Column + `) LIKE ? ESCAPE '\'`, Args: []any{pattern}}, nil
	default:
		return Clause{}, fmt.Errorf("%s: operator %q unsupported for text", f.Field, f.Operator)
	}
}

func timeClause(column string, op Operator, ts time.Time) (Clause, error) {
	switch op {
	case OpGte:
		return Clause{SQL: column + " >= ?", Args: []any{ts}}, nil
	case OpLte:
		return Clause{SQL: column + " <= ?", Args: []any{ts}}, nil
	case OpEq:
		return Clause{SQL: column + " = ?", Args: []any{ts}}, nil
	default:
		return Clause{}, fmt.Errorf("operator %q unsupported for timestamps", op)
	}
}

func normalize(spec Field, v string) (string, error) {
	if spec.Normalize == nil {
		return v, nil
	}
	return spec.Normalize(v)
}

func asStrings(v any) ([]string, error) {
	switch typed := v.(type) {
	case []string:
		return typed, nil
	case string:
		return []string{typed}, nil
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string values")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings")
	}
}

// asTime parses v and reports whether it was a bare date.
func asTime(v any) (time.Time, bool, error) {
	switch typed := v.(type) {
	case time.Time:
		return typed.UTC(), false, nil
	case string:
		if ts, err := time.Parse(time.RFC3339, typed); err == nil {
			return ts.UTC(), false, nil
		}
		if ts, err := time.Parse(time.DateOnly, typed); err == nil {
			return ts.UTC(), true, nil
		}
		return time.Time{}, false, fmt.Errorf("invalid timestamp %q", typed)
	default:
		return time.Time{}, false, fmt.Errorf("expected a timestamp")
	}
}

// EscapeLike escapes LIKE wildcards so user input matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
