package events

import (
	"context"

	"sso-reconciler/internal/events/domain"
)

// Emitter emits account lifecycle events. Best-effort; callers log and
// ignore errors, event delivery never gates a reconciliation.
type Emitter interface {
	Emit(ctx context.Context, event *domain.AccountEvent) error
}

// Noop is an Emitter that drops all events. Used when no broker is configured.
type Noop struct{}

func (Noop) Emit(ctx context.Context, event *domain.AccountEvent) error { return nil }
