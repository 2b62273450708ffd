package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/ledgersense/ledgersense/store"
)

// CreateTransaction inserts a transaction.
func (d *DB) CreateTransaction(ctx context.Context, create *store.Transaction) (*store.Transaction, error) {
	stmt := `
		INSERT INTO transaction (id, user_id, date, amount_cents, category, merchant_id, merchant_name, description, created_ts)
		VALUES (` + placeholders(9) + `)
	`

	_, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.UserID,
		create.Date,
		create.AmountCents,
		create.Category,
		create.MerchantID,
		create.MerchantName,
		create.Description,
		create.CreatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transaction")
	}

	return create, nil
}

// ListTransactions lists transactions matching the find condition.
func (d *DB) ListTransactions(ctx context.Context, find *store.FindTransaction) ([]*store.Transaction, error) {
	where, args := []string{"user_id = " + placeholder(1)}, []any{find.UserID}

	if len(find.IDs) > 0 {
		list := []string{}
		for _, id := range find.IDs {
			args = append(args, id)
			list = append(list, placeholder(len(args)))
		}
		where = append(where, "id IN ("+strings.Join(list, ", ")+")")
	}
	if find.DateFrom != nil {
		args = append(args, *find.DateFrom)
		where = append(where, "date >= "+placeholder(len(args)))
	}
	if find.DateTo != nil {
		args = append(args, *find.DateTo)
		where = append(where, "date <= "+placeholder(len(args)))
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

	query := `
		SELECT id, user_id, date, amount_cents, category, merchant_id, merchant_name, description, created_ts
		FROM transaction
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY date DESC, id
	`
	if find.Limit > 0 {
		args = append(args, find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transactions")
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
