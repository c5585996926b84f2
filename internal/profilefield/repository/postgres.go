package repository

import (
	"context"
	"database/sql"
	"errors"

	"sso-reconciler/internal/profilefield/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a profile field repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetDefinitionByShortName returns the field definition for shortName, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetDefinitionByShortName(ctx context.Context, shortName string) (*domain.FieldDefinition, error) {
	var d domain.FieldDefinition
	err := r.db.QueryRowContext(ctx,
		`SELECT id, short_name, name FROM profile_fields WHERE short_name = $1`,
		shortName,
	).Scan(&d.ID, &d.ShortName, &d.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// UpsertValue writes the account's value for the field. The primary key on
// (account_id, field_id) makes this an update when a row already exists.
func (r *PostgresRepository) UpsertValue(ctx context.Context, accountID, fieldID int64, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profile_field_values (account_id, field_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, field_id) DO UPDATE SET value = EXCLUDED.value`,
		accountID, fieldID, value)
	return err
}

// CreateDefinition persists a new field definition and assigns its ID.
func (r *PostgresRepository) CreateDefinition(ctx context.Context, d *domain.FieldDefinition) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO profile_fields (short_name, name) VALUES ($1, $2) RETURNING id`,
		d.ShortName, d.Name,
	).Scan(&d.ID)
}
