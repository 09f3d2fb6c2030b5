package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/iyhunko/product-catalog/internal/app"
	"github.com/iyhunko/product-catalog/internal/dispatch"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/iyhunko/product-catalog/internal/repository/memory"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/iyhunko/product-catalog/internal/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of service.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

const productBody = `{
	"assets": [{"tag": "front", "url": "https://img.example/100/front.png"}],
	"description": {
		"brand": "Acme", "country": "US", "name": "Widget", "region": "CA",
		"size": "L", "summary": "A fine widget", "type": "tool", "units": "each"
	},
	"inventory": [{"store_id": 1, "quantity": 5}],
	"price": {"retail": 9.99},
	"rating": {"count": 0, "score": 0}
}`

func newCatalog(t *testing.T, publisher service.Publisher) *app.Catalog {
	t.Helper()
	catalog := app.NewCatalog(app.Options{
		Stores:    memory.NewStores(model.Kinds...),
		Publisher: publisher,
	})
	stores, ok := catalog.Handler(model.KindStores)
	require.True(t, ok)
	created := stores.Create(context.Background(), 1, json.RawMessage(`{
		"name": "Main St", "address": "1 Main St", "city": "Springfield", "state": "IL",
		"zip_code": "62701", "latitude": 39.78, "longitude": -89.65
	}`))
	require.Equal(t, http.StatusCreated, created.StatusCode)
	return catalog
}

func read(t *testing.T, catalog *app.Catalog, sku int64) (int, map[string]any) {
	t.Helper()
	o := catalog.Products.Read(context.Background(), sku, url.Values{})
	if o.StatusCode != http.StatusOK {
		return o.StatusCode, nil
	}
	var product map[string]any
	require.NoError(t, o.Decode(&product))
	return o.StatusCode, product
}

func TestProductService_EndToEnd(t *testing.T) {
	// given
	ctx := context.Background()
	publisher := new(MockPublisher)
	publisher.On("PublishProductMessage", mock.Anything, sqs.ProductMessage{Action: sqs.ActionCreated, SkuID: 100}).Return(nil)
	publisher.On("PublishProductMessage", mock.Anything, sqs.ProductMessage{Action: sqs.ActionDeleted, SkuID: 100}).Return(nil)
	catalog := newCatalog(t, publisher)

	// when
	created := catalog.Products.Create(ctx, 100, json.RawMessage(productBody))

	// then
	require.Equal(t, http.StatusCreated, created.StatusCode)
	assert.JSONEq(t, `{"status":201,"message":"created"}`, string(created.Body))

	code, product := read(t, catalog, 100)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(100), product["sku_id"])
	assert.NotNil(t, product["created"])
	assert.NotNil(t, product["updated"])
	assert.Len(t, product["assets"], 1)
	assert.Equal(t, "Acme", product["description"].(map[string]any)["brand"])
	require.Len(t, product["inventory"], 1)
	assert.Equal(t, float64(1), product["inventory"].([]any)[0].(map[string]any)["store_id"])
	assert.Equal(t, 9.99, product["price"].(map[string]any)["retail"])
	assert.NotNil(t, product["rating"])
	assert.Equal(t, []any{}, product["reviews"])
	assert.NotContains(t, product["description"], "sku_id")

	// when
	review := catalog.Dispatcher.Invoke(ctx, dispatch.Request{
		Kind:    model.KindReviews,
		Op:      outcome.OpCreate,
		Key:     100,
		Payload: map[string]any{"author": "ann", "score": 3, "summary": "decent"},
	})

	// then
	require.Equal(t, http.StatusCreated, review.StatusCode)
	_, product = read(t, catalog, 100)
	assert.Equal(t, map[string]any{"count": float64(1), "score": float64(3)}, pick(product["rating"], "count", "score"))
	assert.Len(t, product["reviews"], 1)

	// when
	deleted := catalog.Products.Delete(ctx, 100)

	// then
	assert.Equal(t, http.StatusOK, deleted.StatusCode)
	code, _ = read(t, catalog, 100)
	assert.Equal(t, http.StatusNotFound, code)
	for _, kind := range append(model.Components, model.KindReviews) {
		o := catalog.Dispatcher.Invoke(ctx, dispatch.Request{Kind: kind, Op: outcome.OpRead, Key: 100})
		assert.Equal(t, http.StatusNotFound, o.StatusCode, kind)
	}
	publisher.AssertExpectations(t)
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid component is rejected without side effects", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{name: "not an object", body: `[1, 2]`},
			{name: "empty object", body: `{}`},
			{name: "missing rating", body: `{"assets": [{"tag":"a","url":"b"}]}`},
			{name: "unknown component", body: `{"reviews": []}`},
			{name: "incomplete price", body: replace(t, productBody, "price", `{"sale": 1}`)},
			{name: "score out of range", body: replace(t, productBody, "rating", `{"count": 1, "score": 7}`)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				// given
				var calls int
				ps := service.NewProductService(dispatch.Func(func(context.Context, dispatch.Request) outcome.Outcome {
					calls++
					return outcome.Internal()
				}), nil)

				// when
				o := ps.Create(ctx, 100, json.RawMessage(tt.body))

				// then
				assert.Equal(t, http.StatusBadRequest, o.StatusCode)
				assert.Zero(t, calls)
			})
		}
	})

	t.Run("existing sku is a conflict", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Products.Create(ctx, 100, json.RawMessage(productBody)).StatusCode)

		// when
		o := catalog.Products.Create(ctx, 100, json.RawMessage(productBody))

		// then
		assert.Equal(t, http.StatusConflict, o.StatusCode)
	})

	t.Run("failed component rolls back everything", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		body := replace(t, productBody, "inventory", `[{"store_id": 99, "quantity": 1}]`)

		// when
		o := catalog.Products.Create(ctx, 100, json.RawMessage(body))

		// then
		assert.Equal(t, http.StatusNotFound, o.StatusCode)
		code, _ := read(t, catalog, 100)
		assert.Equal(t, http.StatusNotFound, code)
		for _, kind := range append([]model.Kind{model.KindSkus, model.KindReviews}, model.Components...) {
			o := catalog.Dispatcher.Invoke(ctx, dispatch.Request{Kind: kind, Op: outcome.OpRead, Key: 100})
			assert.Equal(t, http.StatusNotFound, o.StatusCode, kind)
		}
	})

	t.Run("earlier component wins regardless of completion order", func(t *testing.T) {
		for range 5 {
			// given
			rec := &recorder{respond: func(req dispatch.Request) outcome.Outcome {
				switch {
				case req.Kind == model.KindSkus && req.Op == outcome.OpRead:
					return outcome.Status(http.StatusNotFound)
				case req.Op == outcome.OpDelete:
					return outcome.Status(http.StatusOK)
				case req.Kind == model.KindInventory:
					time.Sleep(20 * time.Millisecond)
					return outcome.Status(http.StatusNotFound)
				case req.Kind == model.KindPrice:
					return outcome.Status(http.StatusConflict)
				}
				return outcome.Status(http.StatusCreated)
			}}
			ps := service.NewProductService(rec, nil)

			// when
			o := ps.Create(ctx, 100, json.RawMessage(productBody))

			// then
			assert.Equal(t, http.StatusNotFound, o.StatusCode)
			assert.True(t, rec.called(model.KindSkus, outcome.OpDelete), "compensation deletes the sku")
		}
	})

	t.Run("sku create failure is an internal error", func(t *testing.T) {
		// given
		rec := &recorder{respond: func(req dispatch.Request) outcome.Outcome {
			if req.Op == outcome.OpRead {
				return outcome.Status(http.StatusNotFound)
			}
			return outcome.Status(http.StatusBadRequest)
		}}
		ps := service.NewProductService(rec, nil)

		// when
		o := ps.Create(ctx, 100, json.RawMessage(productBody))

		// then
		assert.Equal(t, http.StatusInternalServerError, o.StatusCode)
		assert.False(t, rec.called(model.KindAssets, outcome.OpCreate))
	})

	t.Run("publish failure does not change the status", func(t *testing.T) {
		// given
		publisher := new(MockPublisher)
		publisher.On("PublishProductMessage", mock.Anything, mock.Anything).Return(assert.AnError)
		catalog := newCatalog(t, publisher)

		// when
		o := catalog.Products.Create(ctx, 100, json.RawMessage(productBody))

		// then
		assert.Equal(t, http.StatusCreated, o.StatusCode)
		publisher.AssertNumberOfCalls(t, "PublishProductMessage", 1)
	})
}

func TestProductService_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("missing optional components render as null and empty lists", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Dispatcher.Invoke(ctx, dispatch.Request{
			Kind: model.KindSkus, Op: outcome.OpCreate, Key: 5,
		}).StatusCode)

		// when
		code, product := read(t, catalog, 5)

		// then
		require.Equal(t, http.StatusOK, code)
		assert.Nil(t, product["description"])
		assert.Nil(t, product["price"])
		assert.Nil(t, product["rating"])
		assert.Equal(t, []any{}, product["assets"])
		assert.Equal(t, []any{}, product["inventory"])
		assert.Equal(t, []any{}, product["reviews"])
		assert.Equal(t, float64(5), product["sku_id"])
	})

	t.Run("projection is forwarded to every component", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Products.Create(ctx, 100, json.RawMessage(productBody)).StatusCode)

		// when
		o := catalog.Products.Read(ctx, 100, url.Values{"field": {"brand", "retail"}})

		// then
		require.Equal(t, http.StatusOK, o.StatusCode)
		var product map[string]any
		require.NoError(t, o.Decode(&product))
		assert.Equal(t, map[string]any{"brand": "Acme"}, product["description"])
		assert.Equal(t, map[string]any{"retail": 9.99}, product["price"])
	})

	t.Run("oversized page is clamped to the rows available", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Products.Create(ctx, 100, json.RawMessage(productBody)).StatusCode)

		// when
		o := catalog.Products.Read(ctx, 100, url.Values{"limit": {"9223372036854775807"}, "offset": {"1"}})
		first := catalog.Products.Read(ctx, 100, url.Values{"limit": {"9223372036854775807"}})

		// then
		require.Equal(t, http.StatusOK, o.StatusCode)
		var product map[string]any
		require.NoError(t, o.Decode(&product))
		assert.Equal(t, []any{}, product["assets"])
		require.Equal(t, http.StatusOK, first.StatusCode)
		require.NoError(t, first.Decode(&product))
		assert.Len(t, product["assets"], 1)
	})

	t.Run("sub-resource failure surfaces its status", func(t *testing.T) {
		// given
		rec := &recorder{respond: func(req dispatch.Request) outcome.Outcome {
			switch req.Kind {
			case model.KindSkus:
				return outcome.JSON(http.StatusOK, map[string]any{"sku_id": 1})
			case model.KindPrice:
				return outcome.Internal()
			}
			return outcome.Status(http.StatusNotFound)
		}}
		ps := service.NewProductService(rec, nil)

		// when
		o := ps.Read(ctx, 1, nil)

		// then
		assert.Equal(t, http.StatusInternalServerError, o.StatusCode)
	})

	t.Run("invalid operator is a bad request", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)

		// when
		o := catalog.Products.Read(ctx, 100, url.Values{"operator": {"XOR"}})

		// then
		assert.Equal(t, http.StatusBadRequest, o.StatusCode)
	})
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates only the components present", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Products.Create(ctx, 100, json.RawMessage(productBody)).StatusCode)

		// when
		o := catalog.Products.Update(ctx, 100, json.RawMessage(`{
			"price": {"sale": 7.5},
			"inventory": [{"store_id": 1, "quantity": 12}]
		}`))

		// then
		require.Equal(t, http.StatusOK, o.StatusCode)
		_, product := read(t, catalog, 100)
		assert.Equal(t, 9.99, product["price"].(map[string]any)["retail"])
		assert.Equal(t, 7.5, product["price"].(map[string]any)["sale"])
		assert.Equal(t, float64(12), product["inventory"].([]any)[0].(map[string]any)["quantity"])
	})

	t.Run("failed component does not undo the others", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Products.Create(ctx, 100, json.RawMessage(productBody)).StatusCode)

		// when
		o := catalog.Products.Update(ctx, 100, json.RawMessage(`{
			"description": {"brand": "Globex"},
			"assets": [{"asset_id": 999, "tag": "back"}]
		}`))

		// then
		assert.Equal(t, http.StatusNotFound, o.StatusCode)
		_, product := read(t, catalog, 100)
		assert.Equal(t, "Globex", product["description"].(map[string]any)["brand"])
	})

	t.Run("unknown store reference is not found", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Products.Create(ctx, 100, json.RawMessage(productBody)).StatusCode)

		// when
		o := catalog.Products.Update(ctx, 100, json.RawMessage(`{"inventory": [{"store_id": 42, "quantity": 1}]}`))

		// then
		assert.Equal(t, http.StatusNotFound, o.StatusCode)
	})

	t.Run("server failures downgrade to a client error", func(t *testing.T) {
		// given
		rec := &recorder{respond: func(req dispatch.Request) outcome.Outcome {
			if req.Kind == model.KindPrice {
				return outcome.Internal()
			}
			return outcome.Status(http.StatusOK)
		}}
		ps := service.NewProductService(rec, nil)

		// when
		o := ps.Update(ctx, 1, json.RawMessage(`{"price": {"retail": 1}, "description": {"name": "x"}}`))

		// then
		assert.Equal(t, http.StatusBadRequest, o.StatusCode)
		assert.True(t, rec.called(model.KindDescription, outcome.OpUpdate))
	})

	t.Run("missing sku is not found", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)

		// when
		o := catalog.Products.Update(ctx, 100, json.RawMessage(`{"price": {"retail": 1}}`))

		// then
		assert.Equal(t, http.StatusNotFound, o.StatusCode)
	})

	t.Run("invalid bodies are rejected", func(t *testing.T) {
		bodies := []string{
			`{}`,
			`{"skus": {}}`,
			`{"price": {}}`,
			`{"assets": [{"tag": "no id"}]}`,
			`{"price": {"retail": -1}}`,
		}
		for _, body := range bodies {
			// given
			catalog := newCatalog(t, nil)

			// when
			o := catalog.Products.Update(ctx, 100, json.RawMessage(body))

			// then
			assert.Equal(t, http.StatusBadRequest, o.StatusCode, body)
		}
	})
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("second delete is not found", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Products.Create(ctx, 100, json.RawMessage(productBody)).StatusCode)

		// when
		first := catalog.Products.Delete(ctx, 100)
		second := catalog.Products.Delete(ctx, 100)

		// then
		assert.Equal(t, http.StatusOK, first.StatusCode)
		assert.Equal(t, http.StatusNotFound, second.StatusCode)
	})

	t.Run("absent components count as deleted", func(t *testing.T) {
		// given
		catalog := newCatalog(t, nil)
		require.Equal(t, http.StatusCreated, catalog.Dispatcher.Invoke(ctx, dispatch.Request{
			Kind: model.KindSkus, Op: outcome.OpCreate, Key: 5,
		}).StatusCode)

		// when
		o := catalog.Products.Delete(ctx, 5)

		// then
		assert.Equal(t, http.StatusOK, o.StatusCode)
	})

	t.Run("first failure in precedence order wins", func(t *testing.T) {
		// given
		rec := &recorder{respond: func(req dispatch.Request) outcome.Outcome {
			switch {
			case req.Op == outcome.OpRead:
				return outcome.Status(http.StatusOK)
			case req.Kind == model.KindDescription:
				time.Sleep(20 * time.Millisecond)
				return outcome.Status(http.StatusBadRequest)
			case req.Kind == model.KindReviews:
				return outcome.Internal()
			}
			return outcome.Status(http.StatusNotFound)
		}}
		ps := service.NewProductService(rec, nil)

		// when
		o := ps.Delete(ctx, 1)

		// then
		assert.Equal(t, http.StatusBadRequest, o.StatusCode)
	})
}

// recorder is a dispatcher that records every request it answers.
type recorder struct {
	mu       sync.Mutex
	requests []dispatch.Request
	respond  func(req dispatch.Request) outcome.Outcome
}

func (r *recorder) Invoke(_ context.Context, req dispatch.Request) outcome.Outcome {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	return r.respond(req)
}

func (r *recorder) called(kind model.Kind, op outcome.Op) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.Kind == kind && req.Op == op {
			return true
		}
	}
	return false
}

func replace(t *testing.T, body, key, value string) string {
	t.Helper()
	var components map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &components))
	components[key] = json.RawMessage(value)
	out, err := json.Marshal(components)
	require.NoError(t, err)
	return string(out)
}

func pick(v any, keys ...string) map[string]any {
	m, _ := v.(map[string]any)
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = m[k]
	}
	return out
}
