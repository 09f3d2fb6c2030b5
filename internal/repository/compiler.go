package repository

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/iyhunko/product-catalog/internal/model"
)

const (
	// FieldParam names a column to project. It may repeat.
	FieldParam = "field"
	// OperatorParam selects how filter terms are joined: AND (default) or OR.
	OperatorParam = "operator"
)

// ErrInvalidOperator is returned when OperatorParam is neither AND nor OR.
var ErrInvalidOperator = errors.New("invalid operator")

var numeric = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// Schema is the allow-list a query is compiled against. Both lists keep
// declaration order.
type Schema struct {
	Projectable []string
	Filterable  []string
}

// SchemaOf derives the compile allow-list from a table declaration.
func SchemaOf(t model.Table) Schema {
	return Schema{Projectable: t.Projectable(), Filterable: t.Filterable()}
}

// Compile turns request parameters into a projection, a filter predicate and
// a page. It performs no I/O and returns the same Query for the same input.
//
// Parameters naming unknown or hidden columns are ignored. Numeric values
// compare by equality, anything else by case-insensitive pattern; a value
// without wildcards matches as a substring.
func Compile(s Schema, params url.Values) (Query, error) {
	logic, err := parseOperator(params.Get(OperatorParam))
	if err != nil {
		return Query{}, err
	}
	return Query{
		Fields: s.project(params[FieldParam]),
		Where:  s.filter(params, logic),
		Page:   ParsePage(params),
	}, nil
}

func parseOperator(v string) (Logic, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", string(And):
		return And, nil
	case string(Or):
		return Or, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, v)
	}
}

func (s Schema) project(requested []string) []string {
	var picked []string
	for _, col := range s.Projectable {
		if slices.Contains(requested, col) {
			picked = append(picked, col)
		}
	}
	if len(picked) == 0 {
		return slices.Clone(s.Projectable)
	}
	return picked
}

func (s Schema) filter(params url.Values, logic Logic) Expr {
	var terms []Expr
	for _, col := range s.Filterable {
		for _, v := range params[col] {
			terms = append(terms, compare(col, v))
		}
	}
	if logic == Or {
		return AnyOf(terms...)
	}
	return AllOf(terms...)
}

func compare(column, value string) Comparison {
	if numeric.MatchString(value) {
		return Eq(column, value)
	}
	if !strings.ContainsAny(value, "%_") {
		value = "%" + value + "%"
	}
	return Match(column, value)
}
