package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sso-reconciler/internal/audit/domain"
	auditrepo "sso-reconciler/internal/audit/repository"
)

// IPExtractor returns the client IP for the current request context.
type IPExtractor func(context.Context) string

// AuditLogger records one sign-in audit event. Refused logins (disabled or
// deleted accounts) are written before the failure is returned to the
// caller. LogEvent is best-effort: failures are logged and do not affect
// the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, accountID int64, matcherValue, action, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *zap.Logger
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor
// for client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, accountID int64, matcherValue, action, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		MatcherValue: matcherValue,
		Action:       action,
		IP:           ip,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("audit: failed to log event",
			zap.String("action", action),
			zap.String("matcher_value", matcherValue),
			zap.Error(err))
	}
}
