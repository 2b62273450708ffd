package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/ledgersense/ledgersense/store"
)

// ListUnindexedTransactions lists transactions with no embedding record,
// oldest first so backfill catches up chronologically.
func (d *DB) ListUnindexedTransactions(ctx context.Context, userID *int32, limit int) ([]*store.Transaction, error) {
	where, args := []string{"te.transaction_id IS NULL"}, []any{}
	if userID != nil {
		args = append(args, *userID)
		where = append(where, "t.user_id = "+placeholder(len(args)))
	}

	query := `
		SELECT t.id, t.user_id, t.date, t.amount_cents, t.category, t.merchant_id, t.merchant_name, t.description, t.created_ts
		FROM transaction t
		LEFT JOIN transaction_embedding te ON te.transaction_id = t.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.date, t.id
	`
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list unindexed transactions")
	}
	defer rows.Close()

	list := []*store.Transaction{}
	for rows.Next() {
		var txn store.Transaction
		if err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Date,
			&txn.AmountCents,
			&txn.Category,
			&txn.MerchantID,
			&txn.MerchantName,
			&txn.Description,
			&txn.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan transaction")
		}
		list = append(list, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// UpsertTransactionEmbedding inserts or updates a transaction embedding.
func (d *DB) UpsertTransactionEmbedding(ctx context.Context, upsert *store.TransactionEmbedding) (*store.TransactionEmbedding, error) {
	stmt := `
		INSERT INTO transaction_embedding (transaction_id, user_id, period_key, category, amount_cents, merchant_id, merchant_name, embedding, created_ts, updated_ts)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (transaction_id)
		DO UPDATE SET
			period_key = EXCLUDED.period_key,
			category = EXCLUDED.category,
			amount_cents = EXCLUDED.amount_cents,
			merchant_id = EXCLUDED.merchant_id,
			merchant_name = EXCLUDED.merchant_name,
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING created_ts, updated_ts
	`

	vector := pgvector.NewVector(upsert.Embedding)
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.TransactionID,
		upsert.UserID,
		upsert.PeriodKey,
		upsert.Category,
		upsert.AmountCents,
		upsert.MerchantID,
		upsert.MerchantName,
		vector,
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert transaction embedding")
	}

	return upsert, nil
}

// FindNearestTransactions performs cosine similarity search using pgvector.
// Without a query vector, matching rows are returned newest first.
func (d *DB) FindNearestTransactions(ctx context.Context, find *store.FindNearestTransactions) ([]*store.TransactionMatch, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := []string{"user_id = " + placeholder(1)}, []any{find.UserID}

	if find.DateFrom != nil {
		args = append(args, find.DateFrom.Format("2006-01"))
		where = append(where, "period_key >= "+placeholder(len(args)))
	}
	if find.DateTo != nil {
		args = append(args, find.DateTo.Format("2006-01"))
		where = append(where, "period_key <= "+placeholder(len(args)))
	}
	if len(find.Categories) > 0 {
		list := []string{}
		for _, category := range find.Categories {
			args = append(args, category)
			list = append(list, placeholder(len(args)))
		}
		where = append(where, "category IN ("+strings.Join(list, ", ")+")")
	}
	if find.AmountMin != nil {
		args = append(args, *find.AmountMin)
		where = append(where, "amount_cents >= "+placeholder(len(args)))
	}
	if find.AmountMax != nil {
		args = append(args, *find.AmountMax)
		where = append(where, "amount_cents <= "+placeholder(len(args)))
	}

	var query string
	if find.Vector != nil {
		// The <=> operator computes cosine distance (1 - cosine_similarity),
		// so ordering by distance ascending returns most similar first.
		args = append(args, pgvector.NewVector(find.Vector))
		vectorParam := placeholder(len(args))
		args = append(args, limit)

		query = `
			SELECT transaction_id, embedding,
				CASE WHEN embedding IS NULL THEN 0 ELSE 1 - (embedding <=> ` + vectorParam + `) END AS score
			FROM transaction_embedding
			WHERE ` + strings.Join(where, " AND ") + `
			ORDER BY embedding <=> ` + vectorParam + `
			LIMIT ` + placeholder(len(args))
	} else {
		args = append(args, limit)
		query = `
			SELECT transaction_id, embedding, 0::float4 AS score
			FROM transaction_embedding
			WHERE ` + strings.Join(where, " AND ") + `
			ORDER BY period_key DESC, transaction_id
			LIMIT ` + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find nearest transactions")
	}
	defer rows.Close()

	matches := []*store.TransactionMatch{}
	for rows.Next() {
		var match store.TransactionMatch
		var vector *pgvector.Vector
		if err := rows.Scan(&match.TransactionID, &vector, &match.Similarity); err != nil {
			return nil, errors.Wrap(err, "failed to scan transaction match")
		}
		if vector != nil {
			match.Embedding = vector.Slice()
		}
		matches = append(matches, &match)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}
