package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/iyhunko/product-catalog/internal/dispatch"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/iyhunko/product-catalog/internal/sqs"
)

// subResources are the kinds a product owns, in the order their outcomes
// take precedence after the sku itself.
var subResources = []model.Kind{
	model.KindAssets,
	model.KindDescription,
	model.KindInventory,
	model.KindPrice,
	model.KindRating,
	model.KindReviews,
}

// Publisher announces product lifecycle changes.
type Publisher interface {
	PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error
}

// Product is the composite read model of one sku.
type Product struct {
	Assets      json.RawMessage `json:"assets"`
	Created     json.RawMessage `json:"created"`
	Description json.RawMessage `json:"description"`
	Inventory   json.RawMessage `json:"inventory"`
	Price       json.RawMessage `json:"price"`
	Rating      json.RawMessage `json:"rating"`
	Reviews     json.RawMessage `json:"reviews"`
	SkuID       int64           `json:"sku_id"`
	Updated     json.RawMessage `json:"updated"`
}

// ProductService coordinates composite product operations across the sku and
// its sub-resources. It only talks to them through the dispatcher, so it
// works the same whether they are local or remote.
//
// Creates are compensated by a full delete when a component fails. Updates
// are best-effort: components that succeeded stay applied when another fails.
type ProductService struct {
	dispatcher dispatch.Dispatcher
	publisher  Publisher
}

// NewProductService creates a ProductService. publisher may be nil.
func NewProductService(dispatcher dispatch.Dispatcher, publisher Publisher) *ProductService {
	return &ProductService{
		dispatcher: dispatcher,
		publisher:  publisher,
	}
}

// Create creates sku and its five required components from body, an object
// keyed by component kind.
func (ps *ProductService) Create(ctx context.Context, sku int64, body json.RawMessage) outcome.Outcome {
	components, err := decodeComponents(body)
	if err == nil {
		err = validateCreate(components)
	}
	if err != nil {
		slog.DebugContext(ctx, "rejected product create", slog.Int64("sku", sku), slog.Any("err", err))
		return outcome.Status(http.StatusBadRequest)
	}

	existing := ps.invoke(ctx, dispatch.Request{Kind: model.KindSkus, Op: outcome.OpRead, Key: sku})
	switch existing.StatusCode {
	case http.StatusOK:
		return outcome.Status(http.StatusConflict)
	case http.StatusNotFound:
	default:
		return outcome.Status(existing.StatusCode)
	}

	created := ps.invoke(ctx, dispatch.Request{Kind: model.KindSkus, Op: outcome.OpCreate, Key: sku})
	if created.StatusCode != http.StatusCreated {
		slog.ErrorContext(ctx, "failed to create sku", slog.Int64("sku", sku), slog.Int("status", created.StatusCode))
		return outcome.Internal()
	}

	calls := make([]func() outcome.Outcome, len(model.Components))
	for i, kind := range model.Components {
		calls[i] = func() outcome.Outcome {
			return ps.invoke(ctx, dispatch.Request{Kind: kind, Op: outcome.OpCreate, Key: sku, Payload: components[kind]})
		}
	}
	outcomes := parallel(calls...)

	if failed, ok := outcome.FirstFailure(outcomes...); ok {
		ps.compensate(ctx, sku, outcomes)
		return outcome.Status(failed.StatusCode)
	}

	metrics.ProductsCreated.Inc()
	ps.publish(ctx, sqs.ActionCreated, sku)
	return outcome.Status(http.StatusCreated)
}

// compensate rolls back a partially created product. Failures are logged
// and otherwise ignored.
func (ps *ProductService) compensate(ctx context.Context, sku int64, outcomes []outcome.Outcome) {
	for i, o := range outcomes {
		if !o.Succeeded {
			slog.WarnContext(ctx, "product component create failed, compensating",
				slog.Int64("sku", sku),
				slog.String("kind", model.Components[i].String()),
				slog.Int("status", o.StatusCode),
			)
		}
	}
	metrics.Compensations.Inc()
	for _, o := range ps.remove(ctx, sku) {
		if !o.Succeeded {
			slog.ErrorContext(ctx, "compensating delete failed", slog.Int64("sku", sku), slog.Int("status", o.StatusCode))
		}
	}
}

// Read assembles the sku and every sub-resource. params are forwarded to
// each of them for projection, filtering and paging.
func (ps *ProductService) Read(ctx context.Context, sku int64, params url.Values) outcome.Outcome {
	kinds := append([]model.Kind{model.KindSkus}, subResources...)
	calls := make([]func() outcome.Outcome, len(kinds))
	for i, kind := range kinds {
		calls[i] = func() outcome.Outcome {
			return ps.invoke(ctx, dispatch.Request{Kind: kind, Op: outcome.OpRead, Key: sku, Query: params})
		}
	}
	outcomes := parallel(calls...)

	for i, o := range outcomes {
		if i > 0 {
			o = outcome.Satisfied(o, http.StatusNotFound)
		}
		if !o.Succeeded {
			return outcome.Status(o.StatusCode)
		}
	}

	var identity map[string]json.RawMessage
	if err := outcomes[0].Decode(&identity); err != nil {
		slog.ErrorContext(ctx, "failed to decode sku", slog.Int64("sku", sku), slog.Any("err", err))
		return outcome.Internal()
	}
	parts := make(map[model.Kind]json.RawMessage, len(subResources))
	for i, kind := range subResources {
		parts[kind] = part(kind, outcomes[i+1])
	}

	return outcome.JSON(http.StatusOK, Product{
		Assets:      parts[model.KindAssets],
		Created:     identity[model.ColumnCreated],
		Description: parts[model.KindDescription],
		Inventory:   parts[model.KindInventory],
		Price:       parts[model.KindPrice],
		Rating:      parts[model.KindRating],
		Reviews:     parts[model.KindReviews],
		SkuID:       sku,
		Updated:     identity[model.ColumnUpdated],
	})
}

// part is the body of a sub-resource read, with absence rendered as null
// for single kinds and as an empty list for list kinds.
func part(kind model.Kind, o outcome.Outcome) json.RawMessage {
	if o.StatusCode == http.StatusOK {
		return o.Body
	}
	if table, ok := model.TableFor(kind); ok && table.Shape == model.ShapeList {
		return json.RawMessage(`[]`)
	}
	return nil
}

// Update applies the components present in body. Each one is independent:
// one failing does not undo the others.
func (ps *ProductService) Update(ctx context.Context, sku int64, body json.RawMessage) outcome.Outcome {
	components, err := decodeComponents(body)
	if err == nil {
		err = validateUpdate(components)
	}
	if err != nil {
		slog.DebugContext(ctx, "rejected product update", slog.Int64("sku", sku), slog.Any("err", err))
		return outcome.Status(http.StatusBadRequest)
	}

	existing := ps.invoke(ctx, dispatch.Request{Kind: model.KindSkus, Op: outcome.OpRead, Key: sku})
	if existing.StatusCode != http.StatusOK {
		return outcome.Status(existing.StatusCode)
	}

	var calls []func() outcome.Outcome
	for _, kind := range model.Components {
		payload, ok := components[kind]
		if !ok {
			continue
		}
		calls = append(calls, func() outcome.Outcome {
			return ps.invoke(ctx, dispatch.Request{Kind: kind, Op: outcome.OpUpdate, Key: sku, Payload: payload})
		})
	}

	failed, ok := outcome.FirstFailure(parallel(calls...)...)
	if !ok {
		return outcome.Status(http.StatusOK)
	}
	if failed.StatusCode >= http.StatusInternalServerError {
		return outcome.Status(http.StatusBadRequest)
	}
	return outcome.Status(failed.StatusCode)
}

// Delete removes the sku and every sub-resource. Sub-resources already
// absent count as deleted.
func (ps *ProductService) Delete(ctx context.Context, sku int64) outcome.Outcome {
	existing := ps.invoke(ctx, dispatch.Request{Kind: model.KindSkus, Op: outcome.OpRead, Key: sku})
	if existing.StatusCode != http.StatusOK {
		return outcome.Status(existing.StatusCode)
	}

	status := outcome.Resolve(outcome.OpDelete, ps.remove(ctx, sku)...)
	if status == http.StatusOK {
		metrics.ProductsDeleted.Inc()
		ps.publish(ctx, sqs.ActionDeleted, sku)
	}
	return outcome.Status(status)
}

// remove fans out deletes to the sku and every sub-resource. Outcomes are in
// precedence order, with not found counted as satisfied.
func (ps *ProductService) remove(ctx context.Context, sku int64) []outcome.Outcome {
	kinds := append([]model.Kind{model.KindSkus}, subResources...)
	calls := make([]func() outcome.Outcome, len(kinds))
	for i, kind := range kinds {
		calls[i] = func() outcome.Outcome {
			o := ps.invoke(ctx, dispatch.Request{Kind: kind, Op: outcome.OpDelete, Key: sku})
			return outcome.Satisfied(o, http.StatusNotFound)
		}
	}
	return parallel(calls...)
}

func (ps *ProductService) invoke(ctx context.Context, req dispatch.Request) outcome.Outcome {
	return ps.dispatcher.Invoke(ctx, req)
}

func (ps *ProductService) publish(ctx context.Context, action string, sku int64) {
	if ps.publisher == nil {
		return
	}
	if err := ps.publisher.PublishProductMessage(ctx, sqs.ProductMessage{Action: action, SkuID: sku}); err != nil {
		// Log error but don't fail the request
		slog.ErrorContext(ctx, "Failed to send SQS message", slog.Any("err", err), slog.String("action", action), slog.Int64("sku", sku))
	}
}

var errNoComponents = errors.New("no components")

func decodeComponents(body json.RawMessage) (map[model.Kind]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidInput, errNoComponents)
	}
	components := make(map[model.Kind]json.RawMessage, len(raw))
	for key, payload := range raw {
		kind := model.Kind(key)
		if !slices.Contains(model.Components, kind) {
			return nil, fmt.Errorf("%w: unknown component %q", model.ErrInvalidInput, key)
		}
		components[kind] = payload
	}
	return components, nil
}

func validateCreate(components map[model.Kind]json.RawMessage) error {
	for _, kind := range model.Components {
		payload, ok := components[kind]
		if !ok {
			return fmt.Errorf("%w: %s is required", model.ErrInvalidInput, kind)
		}
		if _, err := model.Decode(kind, payload, model.ModeCreate); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

func validateUpdate(components map[model.Kind]json.RawMessage) error {
	for kind, payload := range components {
		rows, err := model.Decode(kind, payload, model.ModeUpdate)
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		table, _ := model.TableFor(kind)
		if table.Shape != model.ShapeList {
			continue
		}
		for _, row := range rows {
			if _, ok := row[table.Item]; !ok {
				return fmt.Errorf("%w: %s: %s is required", model.ErrInvalidInput, kind, table.Item)
			}
		}
	}
	return nil
}
