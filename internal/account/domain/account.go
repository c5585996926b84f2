package domain

import (
	"errors"
	"time"
)

// AuthMethodSAML is the designated auth method for accounts managed by this
// service. Reconciliation always signs accounts in under this method,
// regardless of what the record carried before.
const AuthMethodSAML = "saml"

// AuthMethodNoLogin is the sentinel method for accounts that must never
// sign in interactively.
const AuthMethodNoLogin = "nologin"

// ProfileFieldPrefix marks assertion attributes that route to custom
// profile fields instead of standard account columns.
const ProfileFieldPrefix = "profile_field_"

// Account is the persisted local user record. ID 0 means the account does
// not exist yet; repositories assign the real ID on create.
type Account struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	AuthMethod   string
	PasswordHash string
	Deleted      bool
	Suspended    bool
	FirstAccess  time.Time
	TimeModified time.Time
	CreatedAt    time.Time

	// Profile holds custom profile field values keyed by field short name.
	Profile map[string]string
}

// StandardFields enumerates the assertion attributes that map onto account
// columns, in sync order. Attributes outside this set (and outside the
// profile_field_ namespace) are ignored by field sync.
var StandardFields = []string{"username", "email", "firstname", "lastname"}

// Field returns the account's current value for a standard field name.
// Unknown names return "".
func (a *Account) Field(name string) string {
	switch name {
	case "username":
		return a.Username
	case "email":
		return a.Email
	case "firstname":
		return a.FirstName
	case "lastname":
		return a.LastName
	}
	return ""
}

// SetField sets a standard field by name. Unknown names are a no-op; field
// sync only passes names from StandardFields.
func (a *Account) SetField(name, value string) {
	switch name {
	case "username":
		a.Username = value
	case "email":
		a.Email = value
	case "firstname":
		a.FirstName = value
	case "lastname":
		a.LastName = value
	}
}

// Validate validates the account for persistence.
func (a *Account) Validate() error {
	if a.Username == "" {
		return errors.New("username is required")
	}
	if a.AuthMethod == "" {
		return errors.New("auth method is required")
	}
	return nil
}
