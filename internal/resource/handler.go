// Package resource serves the raw per-kind operations on top of a
// repository.Store: payload validation, reference checks, query compilation
// and mapping of store results to status codes.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/iyhunko/product-catalog/internal/repository"
)

// Operations is the request surface of one kind. Key is the sku (or store)
// id; item addresses one row of a list kind.
type Operations interface {
	Create(ctx context.Context, key int64, body json.RawMessage) outcome.Outcome
	Read(ctx context.Context, key int64, params url.Values) outcome.Outcome
	List(ctx context.Context, params url.Values) outcome.Outcome
	Update(ctx context.Context, key int64, body json.RawMessage) outcome.Outcome
	Delete(ctx context.Context, key int64) outcome.Outcome
	ReadItem(ctx context.Context, key, item int64, params url.Values) outcome.Outcome
	UpdateItem(ctx context.Context, key, item int64, body json.RawMessage) outcome.Outcome
	DeleteItem(ctx context.Context, key, item int64) outcome.Outcome
}

// Handler implements Operations for one table.
type Handler struct {
	table  model.Table
	store  repository.Store
	schema repository.Schema
	parent Lookup
	refs   map[string]Lookup
}

// Option configures a Handler.
type Option func(*Handler)

// WithParent makes creates require the parent sku to exist.
func WithParent(l Lookup) Option {
	return func(h *Handler) {
		h.parent = l
	}
}

// WithReference makes creates require the row named by column to exist.
func WithReference(column string, l Lookup) Option {
	return func(h *Handler) {
		h.refs[column] = l
	}
}

// NewHandler creates a Handler for table backed by store.
func NewHandler(table model.Table, store repository.Store, opts ...Option) *Handler {
	h := &Handler{
		table:  table,
		store:  store,
		schema: repository.SchemaOf(table),
		refs:   map[string]Lookup{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Create inserts the rows in body for key. List kinds take one row or an
// array; the other kinds take exactly one row keyed by key.
func (h *Handler) Create(ctx context.Context, key int64, body json.RawMessage) outcome.Outcome {
	rows := []model.Row{{}}
	if model.AcceptsPayload(h.table.Kind) {
		var err error
		if rows, err = model.Decode(h.table.Kind, body, model.ModeCreate); err != nil {
			return h.invalid(ctx, err)
		}
	}

	if h.parent != nil {
		if o, ok := h.exists(ctx, h.parent, key); !ok {
			return o
		}
	}
	for col, l := range h.refs {
		for _, row := range rows {
			id, _ := row[col].(int64)
			if o, ok := h.exists(ctx, l, id); !ok {
				return o
			}
		}
	}

	switch h.table.Shape {
	case model.ShapeList:
		for _, row := range rows {
			delete(row, h.table.Key)
			row[h.table.Parent] = key
		}
	case model.ShapeSingle:
		existing, err := h.store.FindOne(ctx, h.byKey(key), []string{h.table.Key})
		if err != nil {
			return h.failure(ctx, "find", key, err)
		}
		if existing != nil {
			return outcome.Status(http.StatusConflict)
		}
		fallthrough
	default:
		if len(rows) != 1 {
			return outcome.Status(http.StatusBadRequest)
		}
		rows[0][h.table.Key] = key
	}

	return h.mutation(ctx, outcome.OpCreate, key, h.store.Create(ctx, rows...))
}

// Read returns the row of key, or every row of the sku for list kinds.
func (h *Handler) Read(ctx context.Context, key int64, params url.Values) outcome.Outcome {
	q, err := repository.Compile(h.schema, params)
	if err != nil {
		return h.invalid(ctx, err)
	}

	if h.table.Shape == model.ShapeList {
		q.Where = repository.AllOf(repository.Eq(h.table.Parent, key), q.Where)
		return h.findRows(ctx, key, q)
	}
	return h.findOne(ctx, key, h.byKey(key), q.Fields)
}

// List returns the rows of a root kind matching params.
func (h *Handler) List(ctx context.Context, params url.Values) outcome.Outcome {
	if h.table.Shape != model.ShapeRoot {
		return outcome.Status(http.StatusBadRequest)
	}
	q, err := repository.Compile(h.schema, params)
	if err != nil {
		return h.invalid(ctx, err)
	}
	return h.findMany(ctx, 0, q)
}

// ReadItem returns one row of a list kind.
func (h *Handler) ReadItem(ctx context.Context, key, item int64, params url.Values) outcome.Outcome {
	if h.table.Shape != model.ShapeList {
		return outcome.Status(http.StatusBadRequest)
	}
	q, err := repository.Compile(h.schema, params)
	if err != nil {
		return h.invalid(ctx, err)
	}
	return h.findOne(ctx, key, h.byItem(key, item), q.Fields)
}

// Update patches the row of key. For list kinds body addresses each row by
// its item column, and every addressed row must exist before any is written.
func (h *Handler) Update(ctx context.Context, key int64, body json.RawMessage) outcome.Outcome {
	if !model.AcceptsPayload(h.table.Kind) {
		return outcome.Status(http.StatusBadRequest)
	}
	rows, err := model.Decode(h.table.Kind, body, model.ModeUpdate)
	if err != nil {
		return h.invalid(ctx, err)
	}
	if h.table.Shape != model.ShapeList {
		if len(rows) != 1 {
			return outcome.Status(http.StatusBadRequest)
		}
		return h.updateWhere(ctx, key, h.byKey(key), rows[0])
	}

	wheres := make([]repository.Expr, len(rows))
	seen := make(map[int64]bool, len(rows))
	for i, row := range rows {
		item, ok := row[h.table.Item].(int64)
		if !ok {
			return h.invalid(ctx, errors.New(h.table.Item+" is required"))
		}
		if seen[item] {
			return h.invalid(ctx, fmt.Errorf("%s %d appears more than once", h.table.Item, item))
		}
		seen[item] = true
		wheres[i] = h.byItem(key, item)
	}
	for _, where := range wheres {
		found, err := h.store.FindOne(ctx, where, []string{h.table.Item})
		if err != nil {
			return h.failure(ctx, "find", key, err)
		}
		if found == nil {
			return outcome.Status(http.StatusNotFound)
		}
	}

	status := http.StatusOK
	for i, row := range rows {
		res := h.store.Update(ctx, wheres[i], h.patch(row))
		if res.Applied() {
			continue
		}
		if res.Status == repository.Failed {
			h.logFailure(ctx, "update", key, res.Err)
			status = http.StatusInternalServerError
		} else if status == http.StatusOK {
			status = http.StatusBadRequest
		}
	}
	return outcome.Status(status)
}

// UpdateItem patches one row of a list kind.
func (h *Handler) UpdateItem(ctx context.Context, key, item int64, body json.RawMessage) outcome.Outcome {
	if h.table.Shape != model.ShapeList {
		return outcome.Status(http.StatusBadRequest)
	}
	rows, err := model.Decode(h.table.Kind, body, model.ModeUpdate)
	if err != nil {
		return h.invalid(ctx, err)
	}
	if len(rows) != 1 {
		return outcome.Status(http.StatusBadRequest)
	}
	return h.updateWhere(ctx, key, h.byItem(key, item), rows[0])
}

// Delete removes the row of key, or every row of the sku for list kinds.
func (h *Handler) Delete(ctx context.Context, key int64) outcome.Outcome {
	if h.table.Shape != model.ShapeList {
		return h.mutation(ctx, outcome.OpDelete, key, h.store.Delete(ctx, h.byKey(key)))
	}
	res := h.store.Delete(ctx, repository.Eq(h.table.Parent, key))
	if res.Status == repository.Failed {
		return h.mutation(ctx, outcome.OpDelete, key, res)
	}
	return outcome.Status(http.StatusOK)
}

// DeleteItem removes one row of a list kind.
func (h *Handler) DeleteItem(ctx context.Context, key, item int64) outcome.Outcome {
	if h.table.Shape != model.ShapeList {
		return outcome.Status(http.StatusBadRequest)
	}
	return h.mutation(ctx, outcome.OpDelete, key, h.store.Delete(ctx, h.byItem(key, item)))
}

func (h *Handler) updateWhere(ctx context.Context, key int64, where repository.Expr, row model.Row) outcome.Outcome {
	found, err := h.store.FindOne(ctx, where, []string{h.table.Key})
	if err != nil {
		return h.failure(ctx, "find", key, err)
	}
	if found == nil {
		return outcome.Status(http.StatusNotFound)
	}
	return h.mutation(ctx, outcome.OpUpdate, key, h.store.Update(ctx, where, h.patch(row)))
}

// patch drops the columns that address the row.
func (h *Handler) patch(row model.Row) model.Row {
	out := make(model.Row, len(row))
	for col, v := range row {
		if col != h.table.Key && col != h.table.Item && col != h.table.Parent {
			out[col] = v
		}
	}
	return out
}

func (h *Handler) findOne(ctx context.Context, key int64, where repository.Expr, fields []string) outcome.Outcome {
	row, err := h.store.FindOne(ctx, where, fields)
	if err != nil {
		return h.failure(ctx, "find", key, err)
	}
	if row == nil {
		return outcome.Status(http.StatusNotFound)
	}
	return outcome.JSON(http.StatusOK, row)
}

// findRows reads the rows of one sku. A sku without matching rows is not
// found, like a missing single row.
func (h *Handler) findRows(ctx context.Context, key int64, q repository.Query) outcome.Outcome {
	rows, err := h.store.FindMany(ctx, q)
	if err != nil {
		return h.failure(ctx, "find", key, err)
	}
	if len(rows) == 0 {
		return outcome.Status(http.StatusNotFound)
	}
	return outcome.JSON(http.StatusOK, rows)
}

func (h *Handler) findMany(ctx context.Context, key int64, q repository.Query) outcome.Outcome {
	rows, err := h.store.FindMany(ctx, q)
	if err != nil {
		return h.failure(ctx, "find", key, err)
	}
	if rows == nil {
		rows = []model.Row{}
	}
	return outcome.JSON(http.StatusOK, rows)
}

func (h *Handler) exists(ctx context.Context, l Lookup, id int64) (outcome.Outcome, bool) {
	ok, err := l.Exists(ctx, id)
	if err != nil {
		return h.failure(ctx, "lookup", id, err), false
	}
	if !ok {
		return outcome.Status(http.StatusNotFound), false
	}
	return outcome.Outcome{}, true
}

func (h *Handler) byKey(key int64) repository.Expr {
	return repository.Eq(h.table.Key, key)
}

func (h *Handler) byItem(key, item int64) repository.Expr {
	return repository.AllOf(repository.Eq(h.table.Parent, key), repository.Eq(h.table.Item, item))
}

func (h *Handler) mutation(ctx context.Context, op outcome.Op, key int64, res repository.Result) outcome.Outcome {
	if res.Status == repository.Failed {
		h.logFailure(ctx, string(op), key, res.Err)
	}
	return outcome.Status(outcome.ForMutation(op, res))
}

func (h *Handler) invalid(ctx context.Context, err error) outcome.Outcome {
	slog.DebugContext(ctx, "rejected request", slog.String("kind", h.table.Kind.String()), slog.Any("err", err))
	return outcome.Status(http.StatusBadRequest)
}

func (h *Handler) failure(ctx context.Context, op string, key int64, err error) outcome.Outcome {
	h.logFailure(ctx, op, key, err)
	return outcome.Internal()
}

func (h *Handler) logFailure(ctx context.Context, op string, key int64, err error) {
	slog.ErrorContext(ctx, "store operation failed",
		slog.String("kind", h.table.Kind.String()),
		slog.String("op", op),
		slog.Int64("key", key),
		slog.Any("err", err),
	)
}
