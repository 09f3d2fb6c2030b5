package repository

import "fmt"

// Logic joins the terms of a Group.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Comparator is the test a Comparison applies to a column.
type Comparator int

const (
	// Equal is exact equality.
	Equal Comparator = iota
	// Like is case-insensitive pattern matching with % and _ wildcards.
	Like
)

// Expr is a node of a predicate tree.
type Expr interface {
	expr()
}

// Comparison tests one column against a value.
type Comparison struct {
	Column     string
	Comparator Comparator
	Value      string
}

// Group joins terms with one Logic.
type Group struct {
	Logic Logic
	Terms []Expr
}

func (Comparison) expr() {}
func (Group) expr()      {}

// Eq compares column with v for equality.
func Eq(column string, v any) Comparison {
	return Comparison{Column: column, Comparator: Equal, Value: fmt.Sprint(v)}
}

// Match compares column with a case-insensitive pattern.
func Match(column, pattern string) Comparison {
	return Comparison{Column: column, Comparator: Like, Value: pattern}
}

// AllOf joins the non-nil terms with AND. It returns nil when none remain and
// the term itself when only one does.
func AllOf(terms ...Expr) Expr {
	return join(And, terms)
}

// AnyOf joins the non-nil terms with OR.
func AnyOf(terms ...Expr) Expr {
	return join(Or, terms)
}

func join(logic Logic, terms []Expr) Expr {
	kept := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if t == nil {
			continue
		}
		if g, ok := t.(Group); ok && len(g.Terms) == 0 {
			continue
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return Group{Logic: logic, Terms: kept}
}

// Query is a compiled read request: what to return, which rows, which page.
type Query struct {
	Fields []string
	Where  Expr
	Page   Page
}
