package repository

import (
	"context"

	"sso-reconciler/internal/profilefield/domain"
)

// Repository defines persistence for custom profile field definitions and
// per-account values.
type Repository interface {
	// GetDefinitionByShortName returns the field definition for the given
	// short name, or nil if no such field is defined.
	GetDefinitionByShortName(ctx context.Context, shortName string) (*domain.FieldDefinition, error)
	// UpsertValue writes the account's value for the field, updating the
	// existing row when one exists for (accountID, fieldID).
	UpsertValue(ctx context.Context, accountID, fieldID int64, value string) error
	// CreateDefinition persists a new field definition and assigns its ID.
	CreateDefinition(ctx context.Context, d *domain.FieldDefinition) error
}
