package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/shopspring/decimal"
)

// Store is a thread-safe in-memory table. It honors the same key, uniqueness
// and ordering rules as the SQL store and is used for tests and local runs.
type Store struct {
	mu     sync.RWMutex
	table  model.Table
	rows   []model.Row
	nextID int64
	now    func() time.Time
}

// NewStore creates an empty table.
func NewStore(table model.Table) *Store {
	return &Store{
		table:  table,
		nextID: 1,
		now:    time.Now,
	}
}

func (s *Store) Create(_ context.Context, rows ...model.Row) repository.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	batch := make([]model.Row, 0, len(rows))
	nextID := s.nextID
	for _, r := range rows {
		row := s.clean(r)
		if s.table.Serial {
			row[s.table.Key] = nextID
			nextID++
		}
		row[model.ColumnCreated] = now
		row[model.ColumnUpdated] = now
		if s.conflicts(row, batch, nil) {
			return repository.Reject(repository.ReasonConflict)
		}
		batch = append(batch, row)
	}

	s.nextID = nextID
	s.rows = append(s.rows, batch...)
	return repository.Ok()
}

func (s *Store) FindOne(ctx context.Context, where repository.Expr, fields []string) (model.Row, error) {
	rows, err := s.FindMany(ctx, repository.Query{Fields: fields, Where: where, Page: repository.Page{Limit: 1}})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (s *Store) FindMany(_ context.Context, q repository.Query) ([]model.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Row
	for _, row := range s.rows {
		if repository.Evaluate(q.Where, row) {
			matched = append(matched, row)
		}
	}
	slices.SortStableFunc(matched, func(a, b model.Row) int {
		return compare(a[s.table.Order], b[s.table.Order])
	})

	start, end := q.Page.Window(len(matched))
	fields := q.Fields
	if len(fields) == 0 {
		fields = s.table.Names()
	}
	result := make([]model.Row, 0, end-start)
	for _, row := range matched[start:end] {
		result = append(result, project(row, fields))
	}
	return result, nil
}

func (s *Store) Update(_ context.Context, where repository.Expr, patch model.Row) repository.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes := s.clean(patch)
	delete(changes, s.table.Key)
	changes[model.ColumnUpdated] = s.timestamp()

	var idx []int
	var updated []model.Row
	for i, row := range s.rows {
		if !repository.Evaluate(where, row) {
			continue
		}
		next := maps.Clone(row)
		maps.Copy(next, changes)
		idx = append(idx, i)
		updated = append(updated, next)
	}
	if len(idx) == 0 {
		return repository.Reject(repository.ReasonNoMatch)
	}
	for j, row := range updated {
		if s.conflicts(row, updated[:j], idx) {
			return repository.Reject(repository.ReasonConflict)
		}
	}
	for j, i := range idx {
		s.rows[i] = updated[j]
	}
	return repository.Ok()
}

func (s *Store) Delete(_ context.Context, where repository.Expr) repository.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0:0]
	for _, row := range s.rows {
		if !repository.Evaluate(where, row) {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(s.rows) {
		return repository.Reject(repository.ReasonNoMatch)
	}
	s.rows = kept
	return repository.Ok()
}

// clean copies the recognized columns of r.
func (s *Store) clean(r model.Row) model.Row {
	row := make(model.Row, len(r))
	for col, v := range r {
		if s.table.Has(col) {
			row[col] = v
		}
	}
	return row
}

// conflicts reports whether row collides on the key or on a unique column set
// with a stored row (other than those at skip) or with a pending one.
func (s *Store) conflicts(row model.Row, pending []model.Row, skip []int) bool {
	sets := s.table.Unique
	if !s.table.Serial {
		sets = append([][]string{{s.table.Key}}, sets...)
	}
	for _, set := range sets {
		for i, other := range s.rows {
			if !slices.Contains(skip, i) && same(row, other, set) {
				return true
			}
		}
		for _, other := range pending {
			if same(row, other, set) {
				return true
			}
		}
	}
	return false
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func same(a, b model.Row, columns []string) bool {
	for _, col := range columns {
		if repository.Text(a[col]) != repository.Text(b[col]) {
			return false
		}
	}
	return true
}

func project(row model.Row, fields []string) model.Row {
	out := make(model.Row, len(fields))
	for _, f := range fields {
		if v, ok := row[f]; ok {
			out[f] = v
		} else {
			out[f] = nil
		}
	}
	return out
}

func compare(a, b any) int {
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y)
		}
	}
	return cmp.Compare(repository.Text(a), repository.Text(b))
}

// NewStores creates an empty Store for each kind.
func NewStores(kinds ...model.Kind) map[model.Kind]repository.Store {
	stores := make(map[model.Kind]repository.Store, len(kinds))
	for _, k := range kinds {
		if table, ok := model.TableFor(k); ok {
			stores[k] = NewStore(table)
		}
	}
	return stores
}
