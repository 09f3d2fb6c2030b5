package memory

import (
	"context"
	"testing"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, k model.Kind) *Store {
	t.Helper()
	table, ok := model.TableFor(k)
	require.True(t, ok)
	return NewStore(table)
}

func TestStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns serial keys and timestamps", func(t *testing.T) {
		// given
		store := newStore(t, model.KindAssets)

		// when
		res := store.Create(ctx,
			model.Row{"sku_id": int64(1), "tag": "front", "url": "a"},
			model.Row{"sku_id": int64(1), "tag": "back", "url": "b"},
		)

		// then
		require.True(t, res.Applied())
		rows, err := store.FindMany(ctx, repository.Query{})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, int64(1), rows[0]["asset_id"])
		assert.Equal(t, int64(2), rows[1]["asset_id"])
		assert.NotNil(t, rows[0]["created"])
		assert.Equal(t, rows[0]["created"], rows[0]["updated"])
	})

	t.Run("rejects duplicate keys", func(t *testing.T) {
		store := newStore(t, model.KindSkus)
		require.True(t, store.Create(ctx, model.Row{"sku_id": int64(5)}).Applied())

		res := store.Create(ctx, model.Row{"sku_id": int64(5)})

		assert.Equal(t, repository.Rejected, res.Status)
		assert.Equal(t, repository.ReasonConflict, res.Reason)
	})

	t.Run("rejects a batch with an inner duplicate and stores nothing", func(t *testing.T) {
		store := newStore(t, model.KindAssets)

		res := store.Create(ctx,
			model.Row{"sku_id": int64(1), "tag": "front", "url": "a"},
			model.Row{"sku_id": int64(1), "tag": "front", "url": "a"},
		)

		assert.Equal(t, repository.Rejected, res.Status)
		rows, err := store.FindMany(ctx, repository.Query{})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("same tag and url on another sku is fine", func(t *testing.T) {
		store := newStore(t, model.KindAssets)
		require.True(t, store.Create(ctx, model.Row{"sku_id": int64(1), "tag": "front", "url": "a"}).Applied())

		res := store.Create(ctx, model.Row{"sku_id": int64(2), "tag": "front", "url": "a"})

		assert.True(t, res.Applied())
	})
}

func TestStore_FindMany(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, model.KindInventory)
	require.True(t, store.Create(ctx,
		model.Row{"sku_id": int64(1), "store_id": int64(30), "quantity": int64(1)},
		model.Row{"sku_id": int64(1), "store_id": int64(10), "quantity": int64(2)},
		model.Row{"sku_id": int64(2), "store_id": int64(10), "quantity": int64(3)},
	).Applied())

	t.Run("filters, projects and orders by natural key", func(t *testing.T) {
		rows, err := store.FindMany(ctx, repository.Query{
			Fields: []string{"store_id", "quantity"},
			Where:  repository.Eq("sku_id", 1),
		})

		require.NoError(t, err)
		assert.Equal(t, []model.Row{
			{"store_id": int64(30), "quantity": int64(1)},
			{"store_id": int64(10), "quantity": int64(2)},
		}, rows)
	})

	t.Run("pages", func(t *testing.T) {
		rows, err := store.FindMany(ctx, repository.Query{
			Fields: []string{"quantity"},
			Page:   repository.Page{Limit: 1, Offset: 1},
		})

		require.NoError(t, err)
		assert.Equal(t, []model.Row{{"quantity": int64(2)}}, rows)
	})

	t.Run("find one returns nil when absent", func(t *testing.T) {
		row, err := store.FindOne(ctx, repository.Eq("sku_id", 9), nil)

		require.NoError(t, err)
		assert.Nil(t, row)
	})
}

func TestStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, model.KindInventory)
	require.True(t, store.Create(ctx,
		model.Row{"sku_id": int64(1), "store_id": int64(10), "quantity": int64(1)},
		model.Row{"sku_id": int64(1), "store_id": int64(20), "quantity": int64(1)},
	).Applied())

	t.Run("update refreshes updated only", func(t *testing.T) {
		before, err := store.FindOne(ctx, repository.Eq("store_id", 10), nil)
		require.NoError(t, err)

		res := store.Update(ctx, repository.Eq("store_id", 10), model.Row{"quantity": int64(7), "inventory_id": int64(99)})

		require.True(t, res.Applied())
		after, err := store.FindOne(ctx, repository.Eq("store_id", 10), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(7), after["quantity"])
		assert.Equal(t, before["inventory_id"], after["inventory_id"])
		assert.Equal(t, before["created"], after["created"])
	})

	t.Run("update into a unique collision is rejected", func(t *testing.T) {
		res := store.Update(ctx, repository.Eq("store_id", 10), model.Row{"store_id": int64(20)})

		assert.Equal(t, repository.Reject(repository.ReasonConflict), res)
	})

	t.Run("update without a match is rejected", func(t *testing.T) {
		res := store.Update(ctx, repository.Eq("store_id", 99), model.Row{"quantity": int64(1)})

		assert.Equal(t, repository.Reject(repository.ReasonNoMatch), res)
	})

	t.Run("delete", func(t *testing.T) {
		assert.True(t, store.Delete(ctx, repository.Eq("sku_id", 1)).Applied())
		assert.Equal(t, repository.Rejected, store.Delete(ctx, repository.Eq("sku_id", 1)).Status)
	})
}
