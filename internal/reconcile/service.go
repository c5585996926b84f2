// Package reconcile maps a verified identity assertion to a local account:
// it locates the account by the configured matcher attribute, provisions or
// updates it per policy, and reports typed failures for every refusal.
// Signature and trust validation happen upstream; the assertion is trusted
// completely here.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sso-reconciler/internal/account/domain"
	accountrepo "sso-reconciler/internal/account/repository"
	"sso-reconciler/internal/assertion"
	auditdomain "sso-reconciler/internal/audit/domain"
	eventsdomain "sso-reconciler/internal/events/domain"
	profilefielddomain "sso-reconciler/internal/profilefield/domain"
	"sso-reconciler/internal/security"
)

// Sentinel errors for reconciliation; every refusal is one of these.
// Handlers surface a generic message to the end user and log the kind
// server-side to avoid account enumeration.
var (
	ErrMissingMatcherAttribute = errors.New("assertion is missing the account matcher attribute")
	ErrLoginDisabled           = errors.New("account auth method is disabled")
	ErrDeletedAccountLogin     = errors.New("account has been deleted")
	ErrUsernameRequired        = errors.New("username is required to create the account")
	ErrUnknownIdentity         = errors.New("identity does not exist and auto-provisioning is disabled")
	ErrCreateConflict          = errors.New("concurrent account creation detected")
)

// Policy holds the provisioning flags applied on every reconciliation.
type Policy struct {
	// AutoCreate provisions accounts for identities with no local match.
	AutoCreate bool
	// AutoUpdate syncs assertion attributes onto the account on every login.
	AutoUpdate bool
	// TriggerEvents emits account created/updated lifecycle events.
	TriggerEvents bool
}

// Result is the outcome of a successful reconciliation. Credential is the
// generated placeholder credential when Created is true, empty otherwise;
// it is passed to post-login hooks and then discarded.
type Result struct {
	Account      *domain.Account
	Created      bool
	Credential   string
	MatcherValue string
}

// AccountStore is the minimal account repository needed by the reconciler.
type AccountStore interface {
	GetByMatcher(ctx context.Context, field, value string) (*domain.Account, error)
	DeletedExists(ctx context.Context, field, value string) (bool, error)
	Create(ctx context.Context, a *domain.Account) error
	UpdateField(ctx context.Context, id int64, field, value string) error
	SetAuthMethod(ctx context.Context, id int64, method string) error
	SetFirstAccess(ctx context.Context, id int64, at time.Time) error
}

// FieldRegistry is the minimal custom-field repository needed by the reconciler.
type FieldRegistry interface {
	GetDefinitionByShortName(ctx context.Context, shortName string) (*profilefielddomain.FieldDefinition, error)
	UpsertValue(ctx context.Context, accountID, fieldID int64, value string) error
}

// EventEmitter emits account lifecycle events. Best-effort.
type EventEmitter interface {
	Emit(ctx context.Context, event *eventsdomain.AccountEvent) error
}

// AuditLogger records refused sign-in attempts. Best-effort.
type AuditLogger interface {
	LogEvent(ctx context.Context, accountID int64, matcherValue, action, metadata string)
}

// Service implements assertion-to-account reconciliation.
type Service struct {
	accounts AccountStore
	fields   FieldRegistry
	events   EventEmitter
	audit    AuditLogger
	hasher   *security.Hasher

	matcher        string
	policy         Policy
	enabledMethods map[string]bool
	log            *zap.Logger
}

// NewService returns a reconciliation service. matcher names the assertion
// attribute joined against accounts (e.g. "email" or "username");
// enabledMethods lists the administratively enabled auth methods.
func NewService(
	accounts AccountStore,
	fields FieldRegistry,
	events EventEmitter,
	audit AuditLogger,
	hasher *security.Hasher,
	matcher string,
	policy Policy,
	enabledMethods []string,
	log *zap.Logger,
) *Service {
	enabled := make(map[string]bool, len(enabledMethods))
	for _, m := range enabledMethods {
		enabled[m] = true
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		accounts:       accounts,
		fields:         fields,
		events:         events,
		audit:          audit,
		hasher:         hasher,
		matcher:        matcher,
		policy:         policy,
		enabledMethods: enabled,
		log:            log,
	}
}

// Reconcile resolves the asserted identity to a local account. All lookups
// and writes use the designated SAML auth method, regardless of what the
// matched record carried before. Existing stored credentials are never
// overwritten.
func (s *Service) Reconcile(ctx context.Context, asrt assertion.Assertion) (*Result, error) {
	matcherValue := asrt.Get(s.matcher)
	if matcherValue == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingMatcherAttribute, s.matcher)
	}

	account, err := s.accounts.GetByMatcher(ctx, s.matcher, matcherValue)
	if err != nil {
		return nil, err
	}
	if account != nil {
		// The disabled check takes priority over everything else for a
		// live match; records with no stored method are treated as manual.
		method := account.AuthMethod
		if method == "" {
			method = "manual"
		}
		if method == domain.AuthMethodNoLogin || !s.enabledMethods[method] {
			s.audit.LogEvent(ctx, account.ID, matcherValue, auditdomain.ActionLoginDisabled, method)
			return nil, fmt.Errorf("%w: %s", ErrLoginDisabled, matcherValue)
		}
	} else {
		deleted, err := s.accounts.DeletedExists(ctx, s.matcher, matcherValue)
		if err != nil {
			return nil, err
		}
		if deleted {
			s.audit.LogEvent(ctx, 0, matcherValue, auditdomain.ActionLoginDeleted, "")
			return nil, fmt.Errorf("%w: %s", ErrDeletedAccountLogin, matcherValue)
		}
		account = &domain.Account{} // ID 0: identity not known yet
	}

	created := false
	credential := ""

	if account.ID == 0 {
		if !s.policy.AutoCreate {
			return nil, fmt.Errorf("%w: %q", ErrUnknownIdentity, matcherValue)
		}
		account, credential, err = s.provision(ctx, asrt, matcherValue)
		if err != nil {
			return nil, err
		}
		created = true
	}

	if account.ID != 0 && !created {
		if account.AuthMethod == "" {
			// Repair legacy records that never had a method stored.
			if err := s.accounts.SetAuthMethod(ctx, account.ID, domain.AuthMethodSAML); err != nil {
				return nil, err
			}
			account.AuthMethod = domain.AuthMethodSAML
		}
		if s.policy.AutoUpdate {
			if err := s.syncFields(ctx, account, asrt); err != nil {
				return nil, err
			}
			s.emit(ctx, eventsdomain.TypeAccountUpdated, account)
		}
	}

	if account.ID == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIdentity, matcherValue)
	}
	return &Result{Account: account, Created: created, Credential: credential, MatcherValue: matcherValue}, nil
}

// provision creates a new account for an unknown identity, syncs assertion
// attributes onto it, and emits the created event.
func (s *Service) provision(ctx context.Context, asrt assertion.Assertion, matcherValue string) (*domain.Account, string, error) {
	username := asrt.Get("username")
	if username == "" {
		return nil, "", ErrUsernameRequired
	}
	credential, err := security.GenerateCredential()
	if err != nil {
		return nil, "", err
	}
	hash, err := s.hasher.Hash([]byte(credential))
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		Username:     username,
		AuthMethod:   domain.AuthMethodSAML,
		PasswordHash: hash,
		TimeModified: now,
		CreatedAt:    now,
		Profile:      map[string]string{},
	}
	// The matcher attribute seeds its own field so the new record is
	// findable on the next login even when field sync skips the matcher.
	account.SetField(s.matcher, matcherValue)

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, accountrepo.ErrDuplicateMatcher) {
			// Lost the lookup-then-create race to a concurrent login.
			return nil, "", fmt.Errorf("%w: %s", ErrCreateConflict, matcherValue)
		}
		return nil, "", err
	}
	if err := s.syncFields(ctx, account, asrt); err != nil {
		return nil, "", err
	}
	s.emit(ctx, eventsdomain.TypeAccountCreated, account)
	return account, credential, nil
}

// syncFields copies assertion attributes onto the account. Standard fields
// are written only when present, non-empty, changed, and not the matcher
// attribute. profile_field_-prefixed attributes route to the custom field
// registry; unknown short names are dropped silently.
func (s *Service) syncFields(ctx context.Context, account *domain.Account, asrt assertion.Assertion) error {
	if account.FirstAccess.IsZero() && !account.TimeModified.IsZero() {
		// Accounts provisioned through non-interactive flows must not
		// carry a permanently-zero first-access marker.
		if err := s.accounts.SetFirstAccess(ctx, account.ID, account.TimeModified); err != nil {
			return err
		}
		account.FirstAccess = account.TimeModified
	}

	for _, field := range domain.StandardFields {
		if field == s.matcher {
			continue
		}
		val := asrt.Get(field)
		if val == "" {
			continue
		}
		if account.Field(field) == val {
			continue
		}
		if err := s.accounts.UpdateField(ctx, account.ID, field, val); err != nil {
			return err
		}
		account.SetField(field, val)
	}

	for key := range asrt {
		if !strings.HasPrefix(key, domain.ProfileFieldPrefix) {
			continue
		}
		shortName := strings.TrimPrefix(key, domain.ProfileFieldPrefix)
		def, err := s.fields.GetDefinitionByShortName(ctx, shortName)
		if err != nil {
			return err
		}
		if def == nil {
			continue
		}
		value := asrt.Get(key)
		if err := s.fields.UpsertValue(ctx, account.ID, def.ID, value); err != nil {
			return err
		}
		if account.Profile == nil {
			account.Profile = map[string]string{}
		}
		account.Profile[shortName] = value
	}
	return nil
}

// emit sends a lifecycle event when TriggerEvents is on. Best-effort.
func (s *Service) emit(ctx context.Context, eventType string, account *domain.Account) {
	if !s.policy.TriggerEvents || s.events == nil {
		return
	}
	evt := &eventsdomain.AccountEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		AccountID:  account.ID,
		Username:   account.Username,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Emit(ctx, evt); err != nil {
		s.log.Warn("reconcile: event emit failed",
			zap.String("type", eventType),
			zap.Int64("account_id", account.ID),
			zap.Error(err))
	}
}
