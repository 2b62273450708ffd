package store

import "context"

// AuditLog records one retrieval response for observability.
type AuditLog struct {
	ID            int32
	Endpoint      string
	UserID        int32
	SessionID     string
	TraceID       string
	RowCount      int
	TokenEstimate int
	CreatedTs     int64
}

// FindAuditLog is the find condition for audit logs.
type FindAuditLog struct {
	UserID *int32
	Limit  int
}

// CreateAuditLog inserts an audit record.
func (s *Store) CreateAuditLog(ctx context.Context, create *AuditLog) (*AuditLog, error) {
	return s.driver.CreateAuditLog(ctx, create)
}

// ListAuditLogs lists audit records, newest first.
func (s *Store) ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error) {
	return s.driver.ListAuditLogs(ctx, find)
}
