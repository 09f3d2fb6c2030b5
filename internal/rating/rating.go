// Package rating keeps a product's {count, score} aggregate consistent with
// its reviews without rereading them.
package rating

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNoAggregate is returned when an edit or removal finds no aggregate to adjust.
var ErrNoAggregate = errors.New("rating aggregate absent")

var maxScore = decimal.NewFromInt(5)

// Aggregate is the per-product review summary.
type Aggregate struct {
	Count int64           `json:"count"`
	Score decimal.Decimal `json:"score"`
}

// OnReviewAdded folds one new review score into current, which may be nil.
func OnReviewAdded(current *Aggregate, newScore decimal.Decimal) Aggregate {
	if current == nil || current.Count <= 0 {
		return Aggregate{Count: 1, Score: clamp(newScore)}
	}
	count := current.Count + 1
	total := current.total().Add(newScore)
	return Aggregate{Count: count, Score: mean(total, count)}
}

// OnReviewScoreChanged replaces one review's contribution. The count is unchanged.
func OnReviewScoreChanged(current *Aggregate, oldScore, newScore decimal.Decimal) (Aggregate, error) {
	if current == nil || current.Count < 1 {
		return Aggregate{}, ErrNoAggregate
	}
	total := current.total().Sub(oldScore).Add(newScore)
	return Aggregate{Count: current.Count, Score: mean(total, current.Count)}, nil
}

// OnReviewRemoved drops one review's contribution. A nil result means the
// last review is gone and the aggregate must be deleted.
func OnReviewRemoved(current *Aggregate, removedScore decimal.Decimal) (*Aggregate, error) {
	if current == nil || current.Count < 1 {
		return nil, ErrNoAggregate
	}
	count := current.Count - 1
	if count == 0 {
		return nil, nil
	}
	total := current.total().Sub(removedScore)
	return &Aggregate{Count: count, Score: mean(total, count)}, nil
}

func (a Aggregate) total() decimal.Decimal {
	return a.Score.Mul(decimal.NewFromInt(a.Count))
}

// mean divides first and clamps to the 5-point ceiling after.
func mean(total decimal.Decimal, count int64) decimal.Decimal {
	return clamp(total.Div(decimal.NewFromInt(count)))
}

func clamp(score decimal.Decimal) decimal.Decimal {
	return decimal.Min(maxScore, score)
}
