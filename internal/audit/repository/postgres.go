package repository

import (
	"context"
	"database/sql"
	"errors"

	"sso-reconciler/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the audit log for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	var a domain.AuditLog
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, matcher_value, action, ip, metadata, created_at
		FROM audit_logs WHERE id = $1`, id,
	).Scan(&a.ID, &a.AccountID, &a.MatcherValue, &a.Action, &a.IP, &a.Metadata, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListRecent returns audit logs newest first, paginated by limit and offset.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, matcher_value, action, ip, metadata, created_at
		FROM audit_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.AccountID, &a.MatcherValue, &a.Action, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Create persists the audit log to the database. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, account_id, matcher_value, action, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.AccountID, a.MatcherValue, a.Action, a.IP, a.Metadata, a.CreatedAt)
	return err
}
