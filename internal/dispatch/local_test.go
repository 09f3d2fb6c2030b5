package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/iyhunko/product-catalog/internal/repository/memory"
	"github.com/iyhunko/product-catalog/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *Local {
	t.Helper()
	stores := memory.NewStores(model.KindSkus, model.KindAssets)
	skus, ok := model.TableFor(model.KindSkus)
	require.True(t, ok)
	assets, ok := model.TableFor(model.KindAssets)
	require.True(t, ok)

	return NewLocal(map[model.Kind]resource.Operations{
		model.KindSkus: resource.NewHandler(skus, stores[model.KindSkus]),
		model.KindAssets: resource.NewHandler(assets, stores[model.KindAssets],
			resource.WithParent(resource.StoreLookup(stores[model.KindSkus], skus))),
	})
}

func TestLocal_Invoke(t *testing.T) {
	ctx := context.Background()

	t.Run("routes operations to the handler of the kind", func(t *testing.T) {
		// given
		local := newLocal(t)

		// when
		created := local.Invoke(ctx, Request{Kind: model.KindSkus, Op: outcome.OpCreate, Key: 7})
		asset := local.Invoke(ctx, Request{
			Kind:    model.KindAssets,
			Op:      outcome.OpCreate,
			Key:     7,
			Payload: map[string]any{"tag": "front", "url": "https://img/7"},
		})
		read := local.Invoke(ctx, Request{Kind: model.KindAssets, Op: outcome.OpRead, Key: 7})

		// then
		assert.Equal(t, http.StatusCreated, created.StatusCode)
		assert.Equal(t, http.StatusCreated, asset.StatusCode)
		require.Equal(t, http.StatusOK, read.StatusCode)
		var rows []map[string]any
		require.NoError(t, read.Decode(&rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "front", rows[0]["tag"])
	})

	t.Run("key zero read lists the collection", func(t *testing.T) {
		// given
		local := newLocal(t)
		local.Invoke(ctx, Request{Kind: model.KindSkus, Op: outcome.OpCreate, Key: 1})
		local.Invoke(ctx, Request{Kind: model.KindSkus, Op: outcome.OpCreate, Key: 2})

		// when
		o := local.Invoke(ctx, Request{Kind: model.KindSkus, Op: outcome.OpRead, Query: url.Values{"limit": {"1"}, "field": {"sku_id"}}})

		// then
		require.Equal(t, http.StatusOK, o.StatusCode)
		assert.JSONEq(t, `[{"sku_id":1}]`, string(o.Body))
	})

	t.Run("raw payloads pass through untouched", func(t *testing.T) {
		// given
		local := newLocal(t)
		local.Invoke(ctx, Request{Kind: model.KindSkus, Op: outcome.OpCreate, Key: 3})

		// when
		o := local.Invoke(ctx, Request{
			Kind:    model.KindAssets,
			Op:      outcome.OpCreate,
			Key:     3,
			Payload: json.RawMessage(`[{"tag":"a","url":"u1"},{"tag":"b","url":"u2"}]`),
		})

		// then
		assert.Equal(t, http.StatusCreated, o.StatusCode)
	})

	t.Run("unknown kind is an internal error", func(t *testing.T) {
		// given
		local := newLocal(t)

		// when
		o := local.Invoke(ctx, Request{Kind: model.KindPrice, Op: outcome.OpRead, Key: 1})

		// then
		assert.Equal(t, http.StatusInternalServerError, o.StatusCode)
		assert.False(t, o.Succeeded)
	})

	t.Run("registered handler replaces the previous one", func(t *testing.T) {
		// given
		local := newLocal(t)
		called := false
		local.Register(model.KindSkus, stubOperations{read: func() outcome.Outcome {
			called = true
			return outcome.Status(http.StatusNotFound)
		}})

		// when
		o := local.Invoke(ctx, Request{Kind: model.KindSkus, Op: outcome.OpRead, Key: 1})

		// then
		assert.True(t, called)
		assert.Equal(t, http.StatusNotFound, o.StatusCode)
		assert.True(t, local.Handles(model.KindSkus))
		assert.False(t, local.Handles(model.KindRating))
	})
}

func TestLookup(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		code    int
		exists  bool
		wantErr bool
	}{
		{name: "ok means present", code: http.StatusOK, exists: true},
		{name: "not found means absent", code: http.StatusNotFound},
		{name: "anything else is an error", code: http.StatusInternalServerError, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			var got Request
			d := Func(func(_ context.Context, req Request) outcome.Outcome {
				got = req
				return outcome.Status(tt.code)
			})

			// when
			exists, err := Lookup(d, model.KindStores).Exists(ctx, 12)

			// then
			assert.Equal(t, tt.exists, exists)
			if tt.wantErr {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.code, statusErr.StatusCode)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, Request{Kind: model.KindStores, Op: outcome.OpRead, Key: 12}, got)
		})
	}
}

type stubOperations struct {
	resource.Operations
	read func() outcome.Outcome
}

func (s stubOperations) Read(context.Context, int64, url.Values) outcome.Outcome {
	return s.read()
}
