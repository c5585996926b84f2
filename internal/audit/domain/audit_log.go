package domain

import "time"

// Actions recorded for sign-in attempts that are refused before any
// account state changes.
const (
	ActionLoginDisabled = "login_disabled"
	ActionLoginDeleted  = "login_deleted"
)

// AuditLog represents one audited sign-in event.
type AuditLog struct {
	ID           string
	AccountID    int64 // 0 when the attempt never resolved to an account
	MatcherValue string
	Action       string
	IP           string
	Metadata     string
	CreatedAt    time.Time
}
