// Package rank orders candidate transactions by combining embedding
// similarity, recency and amount proximity into a single score.
package rank

import (
	"math"
	"sort"
	"time"
)

// Weights of the convex combination. The result is a ranking key, not a
// probability.
const (
	similarityWeight = 0.6
	recencyWeight    = 0.3
	amountWeight     = 0.1

	// defaultSimilarity is used when no query text was supplied, so that
	// purely filter-driven searches still produce a meaningful order.
	defaultSimilarity = 0.2
)

// Candidate is a transaction under scoring.
type Candidate struct {
	TransactionID string
	Date          time.Time
	AmountCents   int64
	Embedding     []float32
}

// Query carries the scoring inputs for one request.
type Query struct {
	// Vector is the query embedding; nil when no free text was supplied.
	Vector []float32
	// AmountRange is the requested amount filter; nil when absent.
	AmountRange *AmountRange
	// Now anchors the recency component.
	Now time.Time
}

// AmountRange is a closed amount filter in cents.
type AmountRange struct {
	MinCents int64
	MaxCents int64
}

// Midpoint returns the center of the range.
func (r *AmountRange) Midpoint() float64 {
	return float64(r.MinCents+r.MaxCents) / 2
}

// Scored pairs a candidate with its relevance score.
type Scored struct {
	Candidate Candidate
	Score     float64
}

// Score computes the relevance of a single candidate.
func Score(c Candidate, q Query) float64 {
	similarity := defaultSimilarity
	if q.Vector != nil {
		similarity = CosineSimilarity(q.Vector, c.Embedding)
	}

	recency := 1 / (1 + math.Max(0, daysBetween(c.Date, q.Now)))

	amountProximity := 0.0
	if q.AmountRange != nil {
		amountProximity = 1 / (1 + math.Abs(float64(c.AmountCents)-q.AmountRange.Midpoint()))
	}

	return similarityWeight*similarity + recencyWeight*recency + amountWeight*amountProximity
}

// Rank scores all candidates and sorts them by score descending. The sort is
// stable: ties retain the order produced by the retrieval step.
func Rank(candidates []Candidate, q Query) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Candidate: c, Score: Score(c, q)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// CosineSimilarity computes the cosine of the angle between two vectors over
// their common length. Returns 0 when the common length or either norm is
// zero.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// daysBetween returns the number of whole days from date to now.
func daysBetween(date, now time.Time) float64 {
	return math.Floor(now.Sub(date).Hours() / 24)
}
