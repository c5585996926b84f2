package repository

import (
	"context"
	"errors"
	"time"

	"sso-reconciler/internal/account/domain"
)

// ErrDuplicateMatcher is returned by Create when another account already
// holds the same matcher-field value. This is how a lost lookup-then-create
// race surfaces; the store's unique index is the only coordination.
var ErrDuplicateMatcher = errors.New("account with the same matcher value already exists")

// Repository defines persistence for local accounts.
type Repository interface {
	// GetByMatcher returns the non-deleted account whose field (e.g.
	// "email" or "username") equals value, or nil if none exists.
	GetByMatcher(ctx context.Context, field, value string) (*domain.Account, error)
	// DeletedExists reports whether a soft-deleted account holds the
	// given matcher value.
	DeletedExists(ctx context.Context, field, value string) (bool, error)
	// Create persists a new account and assigns its ID. Returns
	// ErrDuplicateMatcher on a uniqueness violation.
	Create(ctx context.Context, a *domain.Account) error
	// UpdateField writes one standard field for the account.
	UpdateField(ctx context.Context, id int64, field, value string) error
	// SetAuthMethod sets the stored auth method for the account.
	SetAuthMethod(ctx context.Context, id int64, method string) error
	// SetFirstAccess sets the first-access timestamp for the account.
	SetFirstAccess(ctx context.Context, id int64, at time.Time) error
}
