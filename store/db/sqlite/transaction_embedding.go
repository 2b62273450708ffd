package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ledgersense/ledgersense/store"
)

// SQLite does not support vector search (no pgvector equivalent).
// For semantic retrieval, use PostgreSQL.

// UpsertTransactionEmbedding is NOT supported for SQLite.
func (d *DB) UpsertTransactionEmbedding(ctx context.Context, upsert *store.TransactionEmbedding) (*store.TransactionEmbedding, error) {
	return nil, errors.New("transaction embedding (vector storage) requires PostgreSQL with pgvector extension")
}

// FindNearestTransactions is NOT supported for SQLite.
func (d *DB) FindNearestTransactions(ctx context.Context, find *store.FindNearestTransactions) ([]*store.TransactionMatch, error) {
	return nil, errors.New("vector search requires PostgreSQL with pgvector extension")
}

// ListUnindexedTransactions is NOT supported for SQLite.
func (d *DB) ListUnindexedTransactions(ctx context.Context, userID *int32, limit int) ([]*store.Transaction, error) {
	return nil, errors.New("transaction embedding (vector storage) requires PostgreSQL with pgvector extension")
}
