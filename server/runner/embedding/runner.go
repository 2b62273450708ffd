// Package embedding backfills vector records for transactions that were
// ingested before indexing, so the in-request repair path stays a rare event.
package embedding

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgersense/ledgersense/plugin/ai/embedding"
	"github.com/ledgersense/ledgersense/server/retrieval"
	"github.com/ledgersense/ledgersense/store"
)

type Runner struct {
	store     *store.Store
	generator *embedding.Generator
	interval  time.Duration
	batchSize int
}

// NewRunner creates a backfill runner. The batch stays small so a large
// import trickles in without starving request traffic.
func NewRunner(st *store.Store, generator *embedding.Generator) *Runner {
	return &Runner{
		store:     st,
		generator: generator,
		interval:  2 * time.Minute,
		batchSize: 50,
	}
}

// Run starts the background loop. Blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes a single backfill batch.
func (r *Runner) RunOnce(ctx context.Context) {
	txns, err := r.store.ListUnindexedTransactions(ctx, nil, r.batchSize)
	if err != nil {
		slog.Error("failed to list unindexed transactions", "error", err)
		return
	}
	if len(txns) == 0 {
		return
	}

	slog.Info("backfilling transaction embeddings", "count", len(txns))

	indexed := 0
	for _, txn := range txns {
		select {
		case <-ctx.Done():
			slog.Info("embedding backfill cancelled", "indexed", indexed, "total", len(txns))
			return
		default:
		}

		now := time.Now().Unix()
		_, err := r.store.UpsertTransactionEmbedding(ctx, &store.TransactionEmbedding{
			TransactionID: txn.ID,
			UserID:        txn.UserID,
			PeriodKey:     txn.Date.Format("2006-01"),
			Category:      txn.Category,
			AmountCents:   txn.AmountCents,
			MerchantID:    txn.MerchantID,
			MerchantName:  strings.ToLower(strings.TrimSpace(txn.MerchantName)),
			Embedding:     r.generator.Embed(ctx, retrieval.IndexText(txn)),
			CreatedTs:     now,
			UpdatedTs:     now,
		})
		if err != nil {
			slog.Error("failed to upsert transaction embedding",
				"transaction_id", txn.ID,
				"error", err)
			continue
		}
		indexed++
	}

	slog.Info("embedding backfill batch done", "indexed", indexed, "total", len(txns))
}
