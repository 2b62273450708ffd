package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Transaction model related methods.
	CreateTransaction(ctx context.Context, create *Transaction) (*Transaction, error)
	ListTransactions(ctx context.Context, find *FindTransaction) ([]*Transaction, error)

	// TransactionEmbedding model related methods.
	UpsertTransactionEmbedding(ctx context.Context, upsert *TransactionEmbedding) (*TransactionEmbedding, error)
	FindNearestTransactions(ctx context.Context, find *FindNearestTransactions) ([]*TransactionMatch, error)
	ListUnindexedTransactions(ctx context.Context, userID *int32, limit int) ([]*Transaction, error)

	// AuditLog model related methods.
	CreateAuditLog(ctx context.Context, create *AuditLog) (*AuditLog, error)
	ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error)
}
