// Package hooks dispatches post-sign-in notifications to every enabled auth
// method, in deployment-configured order. Dispatch is fire-and-forget: a
// failing hook is logged and never gates the sign-in that triggered it.
package hooks

import (
	"context"

	"go.uber.org/zap"

	"sso-reconciler/internal/account/domain"
)

// AuthMethod is one registered authentication method. Methods receive the
// authenticated-account hook regardless of which method performed the
// reconciliation.
type AuthMethod interface {
	// Name returns the method identifier (e.g. "saml", "manual").
	Name() string
	// NotifyAuthenticated is called after a successful sign-in with the
	// resolved account, the matcher value that located it, and the
	// generated placeholder credential (empty for existing accounts).
	NotifyAuthenticated(ctx context.Context, account *domain.Account, matcherValue, credential string) error
}

// Registry holds enabled auth methods in registration order.
type Registry struct {
	methods []AuthMethod
	log     *zap.Logger
}

// NewRegistry registers the given auth methods. Order is preserved; it is
// the dispatch order.
func NewRegistry(log *zap.Logger, methods ...AuthMethod) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{methods: methods, log: log}
}

// Dispatch notifies every registered method of a successful sign-in.
// Hook errors are logged and swallowed; every method is notified even when
// an earlier one fails.
func (r *Registry) Dispatch(ctx context.Context, account *domain.Account, matcherValue, credential string) {
	for _, m := range r.methods {
		if err := m.NotifyAuthenticated(ctx, account, matcherValue, credential); err != nil {
			r.log.Warn("hooks: auth method notification failed",
				zap.String("method", m.Name()),
				zap.Int64("account_id", account.ID),
				zap.Error(err))
		}
	}
}

// Names returns the registered method names in dispatch order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.methods))
	for i, m := range r.methods {
		out[i] = m.Name()
	}
	return out
}

// LoggingMethod is an AuthMethod with no external integration: it records
// the notification in the service log. Deployments swap in real
// integrations per method as they come online.
type LoggingMethod struct {
	name string
	log  *zap.Logger
}

// NewLoggingMethod returns a logging-only auth method with the given name.
func NewLoggingMethod(name string, log *zap.Logger) *LoggingMethod {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingMethod{name: name, log: log}
}

func (m *LoggingMethod) Name() string { return m.name }

func (m *LoggingMethod) NotifyAuthenticated(ctx context.Context, account *domain.Account, matcherValue, credential string) error {
	m.log.Debug("hooks: authenticated",
		zap.String("method", m.name),
		zap.Int64("account_id", account.ID),
		zap.String("matcher_value", matcherValue))
	return nil
}
