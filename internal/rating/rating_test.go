package rating

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAggregate(t *testing.T, want Aggregate, got Aggregate) {
	t.Helper()
	assert.Equal(t, want.Count, got.Count)
	assert.True(t, want.Score.Equal(got.Score), "score: want %s, got %s", want.Score, got.Score)
}

func TestReviewLifecycle(t *testing.T) {
	// given reviews scored 4 and 5
	first := OnReviewAdded(nil, d("4"))
	assertAggregate(t, Aggregate{Count: 1, Score: d("4")}, first)

	second := OnReviewAdded(&first, d("5"))
	assertAggregate(t, Aggregate{Count: 2, Score: d("4.5")}, second)

	// when the first review changes from 4 to 2
	edited, err := OnReviewScoreChanged(&second, d("4"), d("2"))
	require.NoError(t, err)
	assertAggregate(t, Aggregate{Count: 2, Score: d("3.5")}, edited)

	// when the 2-scored review is removed
	removed, err := OnReviewRemoved(&edited, d("2"))
	require.NoError(t, err)
	require.NotNil(t, removed)
	assertAggregate(t, Aggregate{Count: 1, Score: d("5")}, *removed)

	// when the remaining review is removed
	last, err := OnReviewRemoved(removed, d("5"))
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestOnReviewAdded(t *testing.T) {
	t.Run("treats an empty aggregate as absent", func(t *testing.T) {
		got := OnReviewAdded(&Aggregate{}, d("3"))
		assertAggregate(t, Aggregate{Count: 1, Score: d("3")}, got)
	})

	t.Run("clamps after dividing", func(t *testing.T) {
		// an inconsistent stored score above the ceiling is still averaged first
		got := OnReviewAdded(&Aggregate{Count: 1, Score: d("7")}, d("1"))
		assertAggregate(t, Aggregate{Count: 2, Score: d("4")}, got)

		capped := OnReviewAdded(&Aggregate{Count: 1, Score: d("9")}, d("5"))
		assertAggregate(t, Aggregate{Count: 2, Score: d("5")}, capped)
	})
}

func TestPreconditions(t *testing.T) {
	_, err := OnReviewScoreChanged(nil, d("1"), d("2"))
	assert.ErrorIs(t, err, ErrNoAggregate)

	_, err = OnReviewScoreChanged(&Aggregate{Count: 0}, d("1"), d("2"))
	assert.ErrorIs(t, err, ErrNoAggregate)

	_, err = OnReviewRemoved(nil, d("1"))
	assert.ErrorIs(t, err, ErrNoAggregate)
}

func TestReplayMatchesMean(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	var scores []decimal.Decimal
	var agg *Aggregate

	for range 500 {
		switch op := rng.IntN(3); {
		case op == 0 || len(scores) == 0:
			s := decimal.NewFromInt(int64(rng.IntN(11))).Div(decimal.NewFromInt(2))
			next := OnReviewAdded(agg, s)
			agg = &next
			scores = append(scores, s)
		case op == 1:
			i := rng.IntN(len(scores))
			s := decimal.NewFromInt(int64(rng.IntN(6)))
			next, err := OnReviewScoreChanged(agg, scores[i], s)
			require.NoError(t, err)
			agg = &next
			scores[i] = s
		default:
			i := rng.IntN(len(scores))
			next, err := OnReviewRemoved(agg, scores[i])
			require.NoError(t, err)
			agg = next
			scores = append(scores[:i], scores[i+1:]...)
		}

		if len(scores) == 0 {
			require.Nil(t, agg)
			continue
		}
		require.NotNil(t, agg)
		assert.Equal(t, int64(len(scores)), agg.Count)
		sum := decimal.Zero
		for _, s := range scores {
			sum = sum.Add(s)
		}
		want, _ := decimal.Min(d("5"), sum.Div(decimal.NewFromInt(int64(len(scores))))).Float64()
		got, _ := agg.Score.Float64()
		assert.InDelta(t, want, got, 1e-9)
	}
}
