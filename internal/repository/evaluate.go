package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/shopspring/decimal"
)

// Evaluate reports whether row satisfies e. A nil expression matches every row.
func Evaluate(e Expr, row model.Row) bool {
	switch e := e.(type) {
	case nil:
		return true
	case Comparison:
		return e.matches(row)
	case Group:
		if e.Logic == Or {
			for _, t := range e.Terms {
				if Evaluate(t, row) {
					return true
				}
			}
			return len(e.Terms) == 0
		}
		for _, t := range e.Terms {
			if !Evaluate(t, row) {
				return false
			}
		}
		return true
	}
	return false
}

func (c Comparison) matches(row model.Row) bool {
	v, ok := row[c.Column]
	if !ok || v == nil {
		return false
	}
	if c.Comparator == Like {
		return like(strings.ToLower(Text(v)), strings.ToLower(c.Value))
	}
	if n, ok := number(v); ok {
		want, err := decimal.NewFromString(c.Value)
		return err == nil && n.Equal(want)
	}
	return Text(v) == c.Value
}

// Text renders a stored value the way a SQL text cast would.
func Text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func number(v any) (decimal.Decimal, bool) {
	switch v := v.(type) {
	case int64:
		return decimal.NewFromInt(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case float64:
		return decimal.NewFromFloat(v), true
	case decimal.Decimal:
		return v, true
	}
	return decimal.Decimal{}, false
}

// like matches s against a SQL LIKE pattern.
func like(s, pattern string) bool {
	sr, pr := []rune(s), []rune(pattern)
	// match[i][j]: s[:i] matches pattern[:j]
	prev := make([]bool, len(pr)+1)
	prev[0] = true
	for j := 1; j <= len(pr); j++ {
		prev[j] = prev[j-1] && pr[j-1] == '%'
	}
	for i := 1; i <= len(sr); i++ {
		cur := make([]bool, len(pr)+1)
		for j := 1; j <= len(pr); j++ {
			switch pr[j-1] {
			case '%':
				cur[j] = cur[j-1] || prev[j]
			case '_':
				cur[j] = prev[j-1]
			default:
				cur[j] = prev[j-1] && sr[i-1] == pr[j-1]
			}
		}
		prev = cur
	}
	return prev[len(pr)]
}
