package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"sso-reconciler/internal/account/domain"
)

// matcherColumns are the account columns a matcher may join on. Guards the
// dynamic column name in GetByMatcher against anything config could carry.
var matcherColumns = map[string]bool{
	"username":  true,
	"email":     true,
	"firstname": true,
	"lastname":  true,
}

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, username, email, firstname, lastname, auth_method, password_hash, deleted, suspended, first_access, time_modified, created_at`

// GetByMatcher returns the non-deleted account whose field equals value, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByMatcher(ctx context.Context, field, value string) (*domain.Account, error) {
	if !matcherColumns[field] {
		return nil, fmt.Errorf("unsupported matcher field %q", field)
	}
	q := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s = $1 AND deleted = false`, accountColumns, field)
	a, err := scanAccount(r.db.QueryRowContext(ctx, q, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadProfile(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeletedExists reports whether a soft-deleted account holds the given matcher value.
func (r *PostgresRepository) DeletedExists(ctx context.Context, field, value string) (bool, error) {
	if !matcherColumns[field] {
		return false, fmt.Errorf("unsupported matcher field %q", field)
	}
	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM accounts WHERE %s = $1 AND deleted = true)`, field)
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, value).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create persists the account and assigns its ID from the sequence.
// A unique-index violation maps to ErrDuplicateMatcher.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (username, email, firstname, lastname, auth_method, password_hash, deleted, suspended, first_access, time_modified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		a.Username, a.Email, a.FirstName, a.LastName, a.AuthMethod, a.PasswordHash,
		a.Deleted, a.Suspended, a.FirstAccess, a.TimeModified, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateMatcher
		}
		return err
	}
	return nil
}

// UpdateField writes one standard field for the account and bumps time_modified.
func (r *PostgresRepository) UpdateField(ctx context.Context, id int64, field, value string) error {
	if !matcherColumns[field] {
		return fmt.Errorf("unsupported account field %q", field)
	}
	q := fmt.Sprintf(`UPDATE accounts SET %s = $1, time_modified = $2 WHERE id = $3`, field)
	_, err := r.db.ExecContext(ctx, q, value, time.Now().UTC(), id)
	return err
}

// SetAuthMethod sets the stored auth method for the account.
func (r *PostgresRepository) SetAuthMethod(ctx context.Context, id int64, method string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET auth_method = $1 WHERE id = $2`, method, id)
	return err
}

// SetFirstAccess sets the first-access timestamp for the account.
func (r *PostgresRepository) SetFirstAccess(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET first_access = $1 WHERE id = $2`, at, id)
	return err
}

func (r *PostgresRepository) loadProfile(ctx context.Context, a *domain.Account) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.short_name, v.value
		FROM profile_field_values v
		JOIN profile_fields f ON f.id = v.field_id
		WHERE v.account_id = $1`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	a.Profile = map[string]string{}
	for rows.Next() {
		var shortName, value string
		if err := rows.Scan(&shortName, &value); err != nil {
			return err
		}
		a.Profile[shortName] = value
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var firstAccess, timeModified sql.NullTime
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.FirstName, &a.LastName,
		&a.AuthMethod, &a.PasswordHash, &a.Deleted, &a.Suspended,
		&firstAccess, &timeModified, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if firstAccess.Valid {
		a.FirstAccess = firstAccess.Time
	}
	if timeModified.Valid {
		a.TimeModified = timeModified.Time
	}
	return &a, nil
}
