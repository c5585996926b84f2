package domain

// FieldDefinition describes one custom profile field. ShortName is the
// stable external name used in assertion attributes (after stripping the
// profile_field_ prefix); ID is assigned by storage and never changes.
type FieldDefinition struct {
	ID        int64
	ShortName string
	Name      string
}

// FieldValue is one account's value for a custom profile field, keyed by
// (AccountID, FieldID).
type FieldValue struct {
	ID        int64
	AccountID int64
	FieldID   int64
	Value     string
}
