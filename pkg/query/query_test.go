package query

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func testSchema() Schema {
	return Schema{
		Fields: map[string]Field{
			"email": {Column: "customer_email", Kind: KindString, Operators: []Operator{OpContains, OpEq}},
			"status": {
				Column:    "payment_status",
				Kind:      KindString,
				Operators: []Operator{OpIn, OpEq},
				Normalize: func(v string) (string, error) {
					v = strings.ToLower(strings.TrimSpace(v))
					if v != "pending" && v != "succeeded" {
						return "", fmt.Errorf("unknown status %q", v)
					}
					return v, nil
				},
			},
			"created_at": {Column: "created_at", Kind: KindTime, Operators: []Operator{OpGte, OpLte}},
		},
		SortColumns: map[string]string{"created_at": "created_at", "amount": "amount"},
		DefaultSort: Sort{Field: "created_at", Desc: true},
	}
}

func TestBuildRendersClauses(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clauses, err := testSchema().Build([]Filter{
		{Field: "email", Operator: OpContains, Value: "Ann_%"},
		{Field: "status", Operator: OpIn, Value: []any{"Pending", "succeeded"}},
		{Field: "created_at", Operator: OpGte, Value: "2024-01-01"},
	})
	require.NoError(t, err)
	require.Len(t, clauses, 3)

	assert.Equal(t, `LOWER(customer_email) LIKE ? ESCAPE '\'`, clauses[0].SQL)
	assert.Equal(t, []any{`%ann\_\%%`}, clauses[0].Args)

	assert.Equal(t, "payment_status IN ?", clauses[1].SQL)
	assert.Equal(t, []any{[]string{"pending", "succeeded"}}, clauses[1].Args)

	assert.Equal(t, "created_at >= ?", clauses[2].SQL)
	assert.Equal(t, []any{from}, clauses[2].Args)
}

func TestBuildDateOnlyUpperBoundCoversWholeDay(t *testing.T) {
	clauses, err := testSchema().Build([]Filter{
		{Field: "created_at", Operator: OpLte, Value: "2025-03-01"},
		{Field: "created_at", Operator: OpLte, Value: "2025-03-01T12:00:00Z"},
	})
	require.NoError(t, err)
	require.Len(t, clauses, 2)

	assert.Equal(t, "created_at < ?", clauses[0].SQL)
	assert.Equal(t, []any{time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)}, clauses[0].Args)

	assert.Equal(t, "created_at <= ?", clauses[1].SQL)
	assert.Equal(t, []any{time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}, clauses[1].Args)
}

func TestBuildCollectsEveryProblem(t *testing.T) {
	_, err := testSchema().Build([]Filter{
		{Field: "password", Operator: OpEq, Value: "x"},
		{Field: "email", Operator: OpGte, Value: "x"},
		{Field: "status", Operator: OpIn, Value: []string{"bogus"}},
		{Field: "created_at", Operator: OpLte, Value: "yesterday"},
		{Field: "status", Operator: OpIn, Value: []string{}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["filters"], 5)
}

func TestBuildEmptyFilterIsNoop(t *testing.T) {
	clauses, err := testSchema().Build(nil)
	require.NoError(t, err)
	assert.Empty(t, clauses)
}

func TestResolveSortFallsBack(t *testing.T) {
	s := testSchema()

	col, desc := s.ResolveSort(Sort{Field: "amount"})
	assert.Equal(t, "amount", col)
	assert.False(t, desc)

	col, desc = s.ResolveSort(Sort{Field: "customer_email; DROP TABLE orders"})
	assert.Equal(t, "created_at", col)
	assert.True(t, desc)

	col, desc = s.ResolveSort(Sort{})
	assert.Equal(t, "created_at", col)
	assert.True(t, desc)
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, Sort{Field: "amount", Desc: true}, ParseSort("-amount"))
	assert.Equal(t, Sort{Field: "amount", Desc: true}, ParseSort("amount:DESC"))
	assert.Equal(t, Sort{Field: "amount"}, ParseSort("amount:asc"))
	assert.Equal(t, Sort{Field: "amount"}, ParseSort(" amount "))
	assert.Equal(t, Sort{}, ParseSort(""))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, EscapeLike(`50% off_now\`))
}
