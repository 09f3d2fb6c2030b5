package repository

import (
	"context"

	"github.com/iyhunko/product-catalog/internal/model"
)

// Store is the persistence capability of one table.
//
// Mutations report a Result instead of an error so callers can tell a
// business rejection (duplicate key, no matching row) from a storage failure.
type Store interface {
	// Create inserts all rows or none. Serial keys are assigned by the store.
	Create(ctx context.Context, rows ...model.Row) Result
	// FindOne returns the first row matching where, or nil when there is none.
	FindOne(ctx context.Context, where Expr, fields []string) (model.Row, error)
	// FindMany returns matching rows in the table's natural order.
	FindMany(ctx context.Context, query Query) ([]model.Row, error)
	// Update applies patch to every row matching where.
	Update(ctx context.Context, where Expr, patch model.Row) Result
	// Delete removes every row matching where.
	Delete(ctx context.Context, where Expr) Result
}

// Status tags a Result.
type Status int

const (
	Applied Status = iota
	Rejected
	Failed
)

// Reason explains a rejection.
type Reason string

const (
	ReasonConflict Reason = "conflict"
	ReasonNoMatch  Reason = "no matching row"
)

// Result is the outcome of one mutation: applied, rejected for a business
// reason, or failed with a cause.
type Result struct {
	Status Status
	Reason Reason
	Err    error
}

func Ok() Result {
	return Result{Status: Applied}
}

func Reject(reason Reason) Result {
	return Result{Status: Rejected, Reason: reason}
}

func Fail(err error) Result {
	return Result{Status: Failed, Err: err}
}

// Applied reports whether the mutation took effect.
func (r Result) Applied() bool {
	return r.Status == Applied
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
