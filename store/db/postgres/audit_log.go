package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/ledgersense/ledgersense/store"
)

// CreateAuditLog inserts an audit record.
func (d *DB) CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error) {
	stmt := `
		INSERT INTO audit_log (endpoint, user_id, session_id, trace_id, row_count, token_estimate, created_ts)
		VALUES (` + placeholders(7) + `)
		RETURNING id
	`

	err := d.db.QueryRowContext(ctx, stmt,
		create.Endpoint,
		create.UserID,
		create.SessionID,
		create.TraceID,
		create.RowCount,
		create.TokenEstimate,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create audit log")
	}

	return create, nil
}

// ListAuditLogs lists audit records, newest first.
func (d *DB) ListAuditLogs(ctx context.Context, find *store.FindAuditLog) ([]*store.AuditLog, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		args = append(args, *find.UserID)
		where = append(where, "user_id = "+placeholder(len(args)))
	}

	query := `
		SELECT id, endpoint, user_id, session_id, trace_id, row_count, token_estimate, created_ts
		FROM audit_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		args = append(args, find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit logs")
	}
	defer rows.Close()

	list := []*store.AuditLog{}
	for rows.Next() {
		var log store.AuditLog
		if err := rows.Scan(
			&log.ID,
			&log.Endpoint,
			&log.UserID,
			&log.SessionID,
			&log.TraceID,
			&log.RowCount,
			&log.TokenEstimate,
			&log.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit log")
		}
		list = append(list, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
