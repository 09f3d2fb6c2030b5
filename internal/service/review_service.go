package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/iyhunko/product-catalog/internal/dispatch"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/iyhunko/product-catalog/internal/rating"
	"github.com/iyhunko/product-catalog/internal/resource"
	"github.com/shopspring/decimal"
)

var scoreOnly = url.Values{"field": {"score"}}

// ReviewService serves reviews and keeps the sku's rating aggregate in step
// with them. Review writes and the matching rating write run concurrently;
// when one of them fails the other is not undone.
type ReviewService struct {
	reviews    resource.Operations
	dispatcher dispatch.Dispatcher
}

// NewReviewService wraps the review handler. The rating aggregate is read
// and written through dispatcher.
func NewReviewService(reviews resource.Operations, dispatcher dispatch.Dispatcher) *ReviewService {
	return &ReviewService{
		reviews:    reviews,
		dispatcher: dispatcher,
	}
}

// Create adds the reviews in body and folds their scores into the rating.
func (rs *ReviewService) Create(ctx context.Context, sku int64, body json.RawMessage) outcome.Outcome {
	rows, err := model.Decode(model.KindReviews, body, model.ModeCreate)
	if err != nil {
		slog.DebugContext(ctx, "rejected review", slog.Int64("sku", sku), slog.Any("err", err))
		return outcome.Status(http.StatusBadRequest)
	}

	current, failed, ok := rs.currentRating(ctx, sku)
	if !ok {
		return failed
	}
	next := current
	for _, row := range rows {
		agg := rating.OnReviewAdded(next, score(row))
		next = &agg
	}

	outcomes := parallel(
		func() outcome.Outcome { return rs.reviews.Create(ctx, sku, body) },
		func() outcome.Outcome { return rs.saveRating(ctx, sku, current, next) },
	)
	return outcome.Status(outcome.Resolve(outcome.OpCreate, outcomes...))
}

// Read returns the reviews of sku.
func (rs *ReviewService) Read(ctx context.Context, sku int64, params url.Values) outcome.Outcome {
	return rs.reviews.Read(ctx, sku, params)
}

// List is not supported for reviews and answers as the handler does.
func (rs *ReviewService) List(ctx context.Context, params url.Values) outcome.Outcome {
	return rs.reviews.List(ctx, params)
}

// ReadItem returns one review.
func (rs *ReviewService) ReadItem(ctx context.Context, sku, item int64, params url.Values) outcome.Outcome {
	return rs.reviews.ReadItem(ctx, sku, item, params)
}

// Update edits the reviews of sku addressed by review_id in body.
func (rs *ReviewService) Update(ctx context.Context, sku int64, body json.RawMessage) outcome.Outcome {
	rows, err := model.Decode(model.KindReviews, body, model.ModeUpdate)
	if err != nil {
		slog.DebugContext(ctx, "rejected review update", slog.Int64("sku", sku), slog.Any("err", err))
		return outcome.Status(http.StatusBadRequest)
	}
	return rs.edit(ctx, sku, rows, func() outcome.Outcome {
		return rs.reviews.Update(ctx, sku, body)
	})
}

// UpdateItem edits one review.
func (rs *ReviewService) UpdateItem(ctx context.Context, sku, item int64, body json.RawMessage) outcome.Outcome {
	rows, err := model.Decode(model.KindReviews, body, model.ModeUpdate)
	if err != nil || len(rows) != 1 {
		slog.DebugContext(ctx, "rejected review update", slog.Int64("sku", sku), slog.Int64("review", item), slog.Any("err", err))
		return outcome.Status(http.StatusBadRequest)
	}
	rows[0]["review_id"] = item
	return rs.edit(ctx, sku, rows, func() outcome.Outcome {
		return rs.reviews.UpdateItem(ctx, sku, item, body)
	})
}

// edit recomputes the aggregate for every row that changes a score, then
// runs write alongside the rating update. Rows without a score leave the
// aggregate alone. Every row must name a distinct review.
func (rs *ReviewService) edit(ctx context.Context, sku int64, rows []model.Row, write func() outcome.Outcome) outcome.Outcome {
	var changed []model.Row
	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		id, ok := row["review_id"].(int64)
		if !ok || seen[id] {
			slog.DebugContext(ctx, "rejected review update", slog.Int64("sku", sku), slog.Any("review", row["review_id"]))
			return outcome.Status(http.StatusBadRequest)
		}
		seen[id] = true
		if _, ok := row["score"]; ok {
			changed = append(changed, row)
		}
	}
	if len(changed) == 0 {
		return write()
	}

	current, failed, ok := rs.currentRating(ctx, sku)
	if !ok {
		return failed
	}
	next := current
	for _, row := range changed {
		id := row["review_id"].(int64)
		old, failed, ok := rs.reviewScore(ctx, sku, id)
		if !ok {
			return failed
		}
		agg, err := rating.OnReviewScoreChanged(next, old, score(row))
		if err != nil {
			slog.ErrorContext(ctx, "cannot adjust rating", slog.Int64("sku", sku), slog.Int64("review", id), slog.Any("err", err))
			return outcome.Internal()
		}
		next = &agg
	}

	outcomes := parallel(
		write,
		func() outcome.Outcome { return rs.saveRating(ctx, sku, current, next) },
	)
	return outcome.Status(outcome.Resolve(outcome.OpUpdate, outcomes...))
}

// Delete removes every review of sku together with its aggregate.
func (rs *ReviewService) Delete(ctx context.Context, sku int64) outcome.Outcome {
	outcomes := parallel(
		func() outcome.Outcome { return rs.reviews.Delete(ctx, sku) },
		func() outcome.Outcome {
			o := rs.dispatcher.Invoke(ctx, dispatch.Request{Kind: model.KindRating, Op: outcome.OpDelete, Key: sku})
			return outcome.Satisfied(o, http.StatusNotFound)
		},
	)
	return outcome.Status(outcome.Resolve(outcome.OpDelete, outcomes...))
}

// DeleteItem removes one review and takes its score out of the aggregate,
// deleting the aggregate with the last review.
func (rs *ReviewService) DeleteItem(ctx context.Context, sku, item int64) outcome.Outcome {
	old, failed, ok := rs.reviewScore(ctx, sku, item)
	if !ok {
		return failed
	}
	current, failed, ok := rs.currentRating(ctx, sku)
	if !ok {
		return failed
	}
	next, err := rating.OnReviewRemoved(current, old)
	if err != nil {
		slog.ErrorContext(ctx, "cannot adjust rating", slog.Int64("sku", sku), slog.Int64("review", item), slog.Any("err", err))
		return outcome.Internal()
	}

	outcomes := parallel(
		func() outcome.Outcome { return rs.reviews.DeleteItem(ctx, sku, item) },
		func() outcome.Outcome { return rs.saveRating(ctx, sku, current, next) },
	)
	return outcome.Status(outcome.Resolve(outcome.OpDelete, outcomes...))
}

// currentRating reads the aggregate of sku. A nil aggregate means none
// exists yet.
func (rs *ReviewService) currentRating(ctx context.Context, sku int64) (*rating.Aggregate, outcome.Outcome, bool) {
	o := rs.dispatcher.Invoke(ctx, dispatch.Request{
		Kind:  model.KindRating,
		Op:    outcome.OpRead,
		Key:   sku,
		Query: url.Values{"field": {"count", "score"}},
	})
	switch o.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, outcome.Outcome{}, true
	default:
		return nil, outcome.Status(o.StatusCode), false
	}
	var agg rating.Aggregate
	if err := o.Decode(&agg); err != nil {
		slog.ErrorContext(ctx, "failed to decode rating", slog.Int64("sku", sku), slog.Any("err", err))
		return nil, outcome.Internal(), false
	}
	return &agg, outcome.Outcome{}, true
}

func (rs *ReviewService) reviewScore(ctx context.Context, sku, item int64) (decimal.Decimal, outcome.Outcome, bool) {
	o := rs.reviews.ReadItem(ctx, sku, item, scoreOnly)
	if o.StatusCode != http.StatusOK {
		return decimal.Zero, outcome.Status(o.StatusCode), false
	}
	var review struct {
		Score decimal.Decimal `json:"score"`
	}
	if err := o.Decode(&review); err != nil {
		slog.ErrorContext(ctx, "failed to decode review", slog.Int64("sku", sku), slog.Int64("review", item), slog.Any("err", err))
		return decimal.Zero, outcome.Internal(), false
	}
	return review.Score, outcome.Outcome{}, true
}

// saveRating persists next over current: create when there was none,
// delete when next is nil, update otherwise.
func (rs *ReviewService) saveRating(ctx context.Context, sku int64, current, next *rating.Aggregate) outcome.Outcome {
	req := dispatch.Request{Kind: model.KindRating, Key: sku, Payload: next}
	switch {
	case next == nil:
		req.Op, req.Payload = outcome.OpDelete, nil
	case current == nil:
		req.Op = outcome.OpCreate
	default:
		req.Op = outcome.OpUpdate
	}
	return rs.dispatcher.Invoke(ctx, req)
}

func score(row model.Row) decimal.Decimal {
	s, _ := row["score"].(decimal.Decimal)
	return s
}
