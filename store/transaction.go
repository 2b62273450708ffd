package store

import (
	"context"
	"time"
)

// Transaction represents one financial transaction as read from the store.
// Immutable once read; the retrieval path only references it.
type Transaction struct {
	ID           string
	UserID       int32
	Date         time.Time
	AmountCents  int64 // signed, negative = spend
	Category     string
	MerchantID   string
	MerchantName string
	Description  string
	CreatedTs    int64
}

// FindTransaction is the find condition for transactions.
type FindTransaction struct {
	UserID     int32
	IDs        []string
	DateFrom   *time.Time
	DateTo     *time.Time
	Categories []string
	AmountMin  *int64
	AmountMax  *int64
	Limit      int
}

// CreateTransaction inserts a transaction.
func (s *Store) CreateTransaction(ctx context.Context, create *Transaction) (*Transaction, error) {
	return s.driver.CreateTransaction(ctx, create)
}

// ListTransactions lists transactions matching the find condition.
func (s *Store) ListTransactions(ctx context.Context, find *FindTransaction) ([]*Transaction, error) {
	return s.driver.ListTransactions(ctx, find)
}
