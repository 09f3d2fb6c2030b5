package resource

import (
	"context"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

// Lookup answers whether a referenced row exists.
type Lookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, id int64) (bool, error)

func (f LookupFunc) Exists(ctx context.Context, id int64) (bool, error) {
	return f(ctx, id)
}

// StoreLookup checks existence directly in a store keyed by table.Key.
func StoreLookup(store repository.Store, table model.Table) Lookup {
	return LookupFunc(func(ctx context.Context, id int64) (bool, error) {
		row, err := store.FindOne(ctx, repository.Eq(table.Key, id), []string{table.Key})
		if err != nil {
			return false, err
		}
		return row != nil, nil
	})
}
