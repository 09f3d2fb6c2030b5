package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Store implements repository.Store for one Postgres table.
type Store struct {
	db    *sql.DB
	table model.Table
	now   func() time.Time
}

// NewStore creates a Store for table backed by db.
func NewStore(db *sql.DB, table model.Table) *Store {
	return &Store{db: db, table: table, now: time.Now}
}

// Create inserts rows inside one transaction so a batch lands entirely or not at all.
func (s *Store) Create(ctx context.Context, rows ...model.Row) repository.Result {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Fail(fmt.Errorf("failed to begin transaction: %w", err))
	}

	now := s.timestamp()
	for _, r := range rows {
		row := make(model.Row, len(r)+2)
		for col, v := range r {
			if col == s.table.Key && s.table.Serial {
				continue
			}
			row[col] = v
		}
		row[model.ColumnCreated] = now
		row[model.ColumnUpdated] = now

		if err := s.exec(ctx, tx, func(b *builder) string { return b.insertStmt(row) }); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return repository.Fail(fmt.Errorf("failed to rollback transaction: %w (original error: %v)", rbErr, err))
			}
			return s.mutationFailure(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return repository.Fail(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return repository.Ok()
}

func (s *Store) FindOne(ctx context.Context, where repository.Expr, fields []string) (model.Row, error) {
	rows, err := s.FindMany(ctx, repository.Query{Fields: fields, Where: where, Page: repository.Page{Limit: 1}})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (s *Store) FindMany(ctx context.Context, q repository.Query) ([]model.Row, error) {
	b := &builder{table: s.table}
	query := b.selectStmt(q)

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := []model.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.table.Name, err)
		}
		row := make(model.Row, len(cols))
		for i, col := range cols {
			typ, _ := s.table.TypeOf(col)
			if row[col], err = normalize(typ, values[i]); err != nil {
				return nil, fmt.Errorf("failed to read %s.%s: %w", s.table.Name, col, err)
			}
		}
		result = append(result, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

func (s *Store) Update(ctx context.Context, where repository.Expr, patch model.Row) repository.Result {
	row := make(model.Row, len(patch)+1)
	for col, v := range patch {
		if col != s.table.Key {
			row[col] = v
		}
	}
	row[model.ColumnUpdated] = s.timestamp()

	var affected int64
	err := s.execResult(ctx, func(b *builder) string { return b.updateStmt(where, row) }, &affected)
	if err != nil {
		return s.mutationFailure(err)
	}
	if affected == 0 {
		return repository.Reject(repository.ReasonNoMatch)
	}
	return repository.Ok()
}

func (s *Store) Delete(ctx context.Context, where repository.Expr) repository.Result {
	var affected int64
	err := s.execResult(ctx, func(b *builder) string { return b.deleteStmt(where) }, &affected)
	if err != nil {
		return repository.Fail(err)
	}
	if affected == 0 {
		return repository.Reject(repository.ReasonNoMatch)
	}
	return repository.Ok()
}

func (s *Store) exec(ctx context.Context, executor dbExecutor, render func(b *builder) string) error {
	b := &builder{table: s.table}
	query := render(b)

	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.ExecContext(ctx, b.args...); err != nil {
		return fmt.Errorf("failed to execute on %s: %w", s.table.Name, err)
	}
	return nil
}

func (s *Store) execResult(ctx context.Context, render func(b *builder) string, affected *int64) error {
	b := &builder{table: s.table}
	query := render(b)

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, b.args...)
	if err != nil {
		return fmt.Errorf("failed to execute on %s: %w", s.table.Name, err)
	}
	if *affected, err = res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

// mutationFailure maps unique violations to a rejection and anything else to a failure.
func (s *Store) mutationFailure(err error) repository.Result {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pqUniqueViolationErrCode {
		return repository.Result{
			Status: repository.Rejected,
			Reason: repository.ReasonConflict,
			Err:    &repository.UniqueConstraintError{Detail: pgErr.Detail},
		}
	}
	return repository.Fail(err)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// normalize converts a scanned driver value to the representation handlers
// expose: int64, decimal.Decimal, string or time.Time.
func normalize(t model.ColumnType, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}
	switch t {
	case model.Decimal:
		switch x := v.(type) {
		case string:
			return decimal.NewFromString(x)
		case float64:
			return decimal.NewFromFloat(x), nil
		case int64:
			return decimal.NewFromInt(x), nil
		}
	case model.Integer:
		switch x := v.(type) {
		case int32:
			return int64(x), nil
		case int:
			return int64(x), nil
		}
	case model.UUID:
		if x, ok := v.([16]byte); ok {
			return uuid.UUID(x).String(), nil
		}
	}
	return v, nil
}
