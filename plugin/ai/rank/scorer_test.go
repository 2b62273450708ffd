package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCosineSimilarity(t *testing.T) {
	t.Run("Identical", func(t *testing.T) {
		v := []float32{0.5, -0.25, 0.1}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("Orthogonal", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("Opposite", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	})

	t.Run("ZeroLength", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity(nil, []float32{1, 2}))
	})

	t.Run("ZeroNorm", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	})
}

func TestScore(t *testing.T) {
	t.Run("NoQueryTextUsesDefaultSimilarity", func(t *testing.T) {
		c := Candidate{Date: now, AmountCents: -1000, Embedding: []float32{1, 0}}
		got := Score(c, Query{Now: now})
		// 0.6*0.2 + 0.3*1 (same day) + 0 = 0.42
		assert.InDelta(t, 0.42, got, 1e-9)
	})

	t.Run("RecencyDecays", func(t *testing.T) {
		fresh := Candidate{Date: now, Embedding: []float32{1, 0}}
		stale := Candidate{Date: now.AddDate(0, 0, -9), Embedding: []float32{1, 0}}
		q := Query{Now: now}
		assert.Greater(t, Score(fresh, q), Score(stale, q))
	})

	t.Run("AmountProximity", func(t *testing.T) {
		q := Query{
			Now:         now,
			AmountRange: &AmountRange{MinCents: -2000, MaxCents: -1000},
		}
		exact := Candidate{Date: now, AmountCents: -1500, Embedding: []float32{1, 0}}
		off := Candidate{Date: now, AmountCents: -900, Embedding: []float32{1, 0}}
		assert.Greater(t, Score(exact, q), Score(off, q))
	})

	t.Run("NoAmountRangeContributesZero", func(t *testing.T) {
		c := Candidate{Date: now.AddDate(0, 0, -1), AmountCents: -1500, Embedding: []float32{1, 0}}
		withRange := Score(c, Query{Now: now, AmountRange: &AmountRange{MinCents: -1500, MaxCents: -1500}})
		without := Score(c, Query{Now: now})
		assert.InDelta(t, 0.1, withRange-without, 1e-9)
	})
}

func TestRank(t *testing.T) {
	t.Run("HigherSimilarityRanksFirst", func(t *testing.T) {
		query := Query{Vector: []float32{1, 0}, Now: now}
		aligned := Candidate{TransactionID: "a", Date: now, Embedding: []float32{1, 0}}
		skewed := Candidate{TransactionID: "b", Date: now, Embedding: []float32{0.5, 0.8}}

		scored := Rank([]Candidate{skewed, aligned}, query)
		require.Len(t, scored, 2)
		assert.Equal(t, "a", scored[0].Candidate.TransactionID)
	})

	t.Run("TiesKeepRetrievalOrder", func(t *testing.T) {
		query := Query{Now: now}
		first := Candidate{TransactionID: "first", Date: now}
		second := Candidate{TransactionID: "second", Date: now}

		scored := Rank([]Candidate{first, second}, query)
		assert.Equal(t, "first", scored[0].Candidate.TransactionID)
		assert.Equal(t, "second", scored[1].Candidate.TransactionID)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Rank(nil, Query{Now: now}))
	})
}
