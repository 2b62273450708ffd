package embedding

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersense/ledgersense/internal/profile"
	aiembedding "github.com/ledgersense/ledgersense/plugin/ai/embedding"
	"github.com/ledgersense/ledgersense/store"
)

type backfillDriver struct {
	store.Driver

	transactions []*store.Transaction
	embeddings   map[string]*store.TransactionEmbedding
}

func (d *backfillDriver) GetDB() *sql.DB { return nil }
func (d *backfillDriver) Close() error   { return nil }

func (d *backfillDriver) ListUnindexedTransactions(ctx context.Context, userID *int32, limit int) ([]*store.Transaction, error) {
	list := []*store.Transaction{}
	for _, txn := range d.transactions {
		if _, ok := d.embeddings[txn.ID]; ok {
			continue
		}
		list = append(list, txn)
		if limit > 0 && len(list) >= limit {
			break
		}
	}
	return list, nil
}

func (d *backfillDriver) UpsertTransactionEmbedding(ctx context.Context, upsert *store.TransactionEmbedding) (*store.TransactionEmbedding, error) {
	d.embeddings[upsert.TransactionID] = upsert
	return upsert, nil
}

func TestRunOnceBackfillsAllUnindexed(t *testing.T) {
	driver := &backfillDriver{
		embeddings: map[string]*store.TransactionEmbedding{},
		transactions: []*store.Transaction{
			{ID: "txn-1", UserID: 1, Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), AmountCents: -500, Category: "dining", MerchantName: "Cafe"},
			{ID: "txn-2", UserID: 1, Date: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), AmountCents: -900, Category: "groceries", MerchantName: "Market"},
		},
	}
	prof := &profile.Profile{Mode: "dev", Driver: "postgres", DSN: "test", EmbeddingDimensions: 16}
	runner := NewRunner(store.New(driver, prof), aiembedding.NewGenerator(16))

	runner.RunOnce(context.Background())

	require.Len(t, driver.embeddings, 2)
	for id, emb := range driver.embeddings {
		assert.Equal(t, id, emb.TransactionID)
		assert.Len(t, emb.Embedding, 16)
		assert.NotEmpty(t, emb.PeriodKey)
	}

	// A second pass finds nothing left to index and changes nothing.
	before := driver.embeddings["txn-1"]
	runner.RunOnce(context.Background())
	assert.Same(t, before, driver.embeddings["txn-1"])
}
