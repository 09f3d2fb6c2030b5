package sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// builder renders statements for one table with numbered placeholders.
type builder struct {
	table model.Table
	args  []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) tableName() string {
	return pq.QuoteIdentifier(b.table.Name)
}

func (b *builder) selectStmt(q repository.Query) string {
	fields := q.Fields
	if len(fields) == 0 {
		fields = b.table.Names()
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = pq.QuoteIdentifier(f)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(quoted, ", "), b.tableName())
	b.where(&sb, q.Where)
	fmt.Fprintf(&sb, " ORDER BY %s", pq.QuoteIdentifier(b.table.Order))
	if q.Page.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %s", b.arg(q.Page.Limit))
	}
	if q.Page.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %s", b.arg(q.Page.Offset))
	}
	return sb.String()
}

func (b *builder) insertStmt(row model.Row) string {
	var cols, vals []string
	for _, name := range b.table.Names() {
		v, ok := row[name]
		if !ok {
			continue
		}
		cols = append(cols, pq.QuoteIdentifier(name))
		vals = append(vals, b.arg(v))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", b.tableName(), strings.Join(cols, ", "), strings.Join(vals, ", "))
}

func (b *builder) updateStmt(where repository.Expr, patch model.Row) string {
	var sets []string
	for _, name := range b.table.Names() {
		v, ok := patch[name]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", pq.QuoteIdentifier(name), b.arg(v)))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", b.tableName(), strings.Join(sets, ", "))
	b.where(&sb, where)
	return sb.String()
}

func (b *builder) deleteStmt(where repository.Expr) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", b.tableName())
	b.where(&sb, where)
	return sb.String()
}

func (b *builder) where(sb *strings.Builder, e repository.Expr) {
	if e == nil {
		return
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(b.expr(e))
}

func (b *builder) expr(e repository.Expr) string {
	switch e := e.(type) {
	case repository.Comparison:
		col := pq.QuoteIdentifier(e.Column)
		if e.Comparator == repository.Like {
			return fmt.Sprintf("CAST(%s AS TEXT) ILIKE %s", col, b.arg(e.Value))
		}
		v, ok := b.typed(e.Column, e.Value)
		if !ok {
			return "FALSE"
		}
		return fmt.Sprintf("%s = %s", col, b.arg(v))
	case repository.Group:
		if len(e.Terms) == 0 {
			return "TRUE"
		}
		parts := make([]string, len(e.Terms))
		for i, t := range e.Terms {
			parts[i] = b.expr(t)
		}
		return "(" + strings.Join(parts, " "+string(e.Logic)+" ") + ")"
	}
	return "FALSE"
}

// typed converts a comparison value to the column's Go type so the driver
// binds it without a text round trip. It reports false when the value cannot
// hold the column's type, in which case no row can match.
func (b *builder) typed(column, value string) (any, bool) {
	t, ok := b.table.TypeOf(column)
	if !ok {
		return value, true
	}
	switch t {
	case model.Integer:
		n, err := strconv.ParseInt(value, 10, 64)
		return n, err == nil
	case model.Decimal:
		d, err := decimal.NewFromString(value)
		return d, err == nil
	case model.UUID:
		id, err := uuid.Parse(value)
		return id.String(), err == nil
	case model.Timestamp:
		ts, err := time.Parse(time.RFC3339Nano, value)
		return ts, err == nil
	}
	return value, true
}
