package domain

import "time"

// Event types emitted after reconciliation writes.
const (
	TypeAccountCreated = "account.created"
	TypeAccountUpdated = "account.updated"
)

// AccountEvent is the lifecycle notification for downstream consumers,
// keyed by account id.
type AccountEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	AccountID  int64     `json:"account_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}
