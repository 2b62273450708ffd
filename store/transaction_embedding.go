package store

import (
	"context"
	"time"
)

// TransactionEmbedding represents the indexed vector record of a transaction.
// The denormalized columns exist so nearest-neighbor queries can filter
// without joining the transaction table.
type TransactionEmbedding struct {
	TransactionID string
	UserID        int32
	PeriodKey     string // YYYY-MM of the transaction date
	Category      string
	AmountCents   int64
	MerchantID    string
	MerchantName  string // normalized
	Embedding     []float32
	CreatedTs     int64
	UpdatedTs     int64
}

// FindNearestTransactions represents a filtered approximate-similarity query.
type FindNearestTransactions struct {
	UserID int32
	// Vector is the query embedding. When nil, matches are ordered by date
	// descending instead of similarity.
	Vector     []float32
	DateFrom   *time.Time
	DateTo     *time.Time
	Categories []string
	AmountMin  *int64
	AmountMax  *int64
	Limit      int
}

// TransactionMatch is one nearest-neighbor result. An empty Embedding signals
// a transaction that was never indexed.
type TransactionMatch struct {
	TransactionID string
	Embedding     []float32
	Similarity    float32 // 0 when no query vector was supplied
}

// UpsertTransactionEmbedding inserts or updates an embedding record.
// Idempotent, keyed by transaction id.
func (s *Store) UpsertTransactionEmbedding(ctx context.Context, upsert *TransactionEmbedding) (*TransactionEmbedding, error) {
	return s.driver.UpsertTransactionEmbedding(ctx, upsert)
}

// FindNearestTransactions performs the filtered nearest-neighbor query.
func (s *Store) FindNearestTransactions(ctx context.Context, find *FindNearestTransactions) ([]*TransactionMatch, error) {
	return s.driver.FindNearestTransactions(ctx, find)
}

// ListUnindexedTransactions lists transactions that have no embedding record
// yet. A nil userID spans all users.
func (s *Store) ListUnindexedTransactions(ctx context.Context, userID *int32, limit int) ([]*Transaction, error) {
	return s.driver.ListUnindexedTransactions(ctx, userID, limit)
}
