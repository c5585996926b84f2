package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sso-reconciler/internal/account/domain"
	accountrepo "sso-reconciler/internal/account/repository"
	"sso-reconciler/internal/assertion"
	eventsdomain "sso-reconciler/internal/events/domain"
	profilefielddomain "sso-reconciler/internal/profilefield/domain"
	"sso-reconciler/internal/security"
)

type memAccountStore struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*domain.Account
	deleted map[string]bool // matcher value -> soft-deleted record exists

	createErr   error
	fieldWrites int
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{nextID: 1, byID: map[int64]*domain.Account{}, deleted: map[string]bool{}}
}

func (r *memAccountStore) GetByMatcher(ctx context.Context, field, value string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if !a.Deleted && a.Field(field) == value {
			a2 := *a
			return &a2, nil
		}
	}
	return nil, nil
}

func (r *memAccountStore) DeletedExists(ctx context.Context, field, value string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleted[value], nil
}

func (r *memAccountStore) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.Username == a.Username {
			return accountrepo.ErrDuplicateMatcher
		}
	}
	a.ID = r.nextID
	r.nextID++
	a2 := *a
	r.byID[a.ID] = &a2
	return nil
}

func (r *memAccountStore) UpdateField(ctx context.Context, id int64, field, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fieldWrites++
	if a, ok := r.byID[id]; ok {
		a.SetField(field, value)
	}
	return nil
}

func (r *memAccountStore) SetAuthMethod(ctx context.Context, id int64, method string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		a.AuthMethod = method
	}
	return nil
}

func (r *memAccountStore) SetFirstAccess(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		a.FirstAccess = at
	}
	return nil
}

type memFieldRegistry struct {
	mu     sync.Mutex
	defs   map[string]*profilefielddomain.FieldDefinition
	values map[int64]map[int64]string // account id -> field id -> value
}

func newMemFieldRegistry(shortNames ...string) *memFieldRegistry {
	r := &memFieldRegistry{defs: map[string]*profilefielddomain.FieldDefinition{}, values: map[int64]map[int64]string{}}
	for i, name := range shortNames {
		r.defs[name] = &profilefielddomain.FieldDefinition{ID: int64(i + 1), ShortName: name}
	}
	return r
}

func (r *memFieldRegistry) GetDefinitionByShortName(ctx context.Context, shortName string) (*profilefielddomain.FieldDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defs[shortName], nil
}

func (r *memFieldRegistry) UpsertValue(ctx context.Context, accountID, fieldID int64, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values[accountID] == nil {
		r.values[accountID] = map[int64]string{}
	}
	r.values[accountID][fieldID] = value
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*eventsdomain.AccountEvent
}

func (e *recordingEmitter) Emit(ctx context.Context, event *eventsdomain.AccountEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []struct {
		AccountID    int64
		MatcherValue string
		Action       string
	}
}

func (a *recordingAudit) LogEvent(ctx context.Context, accountID int64, matcherValue, action, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, struct {
		AccountID    int64
		MatcherValue string
		Action       string
	}{accountID, matcherValue, action})
}

type testEnv struct {
	store    *memAccountStore
	registry *memFieldRegistry
	emitter  *recordingEmitter
	audit    *recordingAudit
}

func newTestService(t *testing.T, matcher string, policy Policy) (*Service, *testEnv) {
	t.Helper()
	env := &testEnv{
		store:    newMemAccountStore(),
		registry: newMemFieldRegistry("department"),
		emitter:  &recordingEmitter{},
		audit:    &recordingAudit{},
	}
	svc := NewService(
		env.store, env.registry, env.emitter, env.audit,
		security.NewHasher(4),
		matcher, policy,
		[]string{"manual", domain.AuthMethodSAML},
		nil,
	)
	return svc, env
}

func TestReconcile_MissingMatcherAttribute(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoCreate: true})
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, assertion.Assertion{"username": {"alice"}})
	if !errors.Is(err, ErrMissingMatcherAttribute) {
		t.Fatalf("want ErrMissingMatcherAttribute, got %v", err)
	}
	if len(env.store.byID) != 0 || env.store.fieldWrites != 0 {
		t.Error("no storage writes expected for missing matcher")
	}

	// Present but empty is the same failure.
	_, err = svc.Reconcile(ctx, assertion.Assertion{"email": {""}})
	if !errors.Is(err, ErrMissingMatcherAttribute) {
		t.Fatalf("empty matcher: want ErrMissingMatcherAttribute, got %v", err)
	}
}

func TestReconcile_AutoCreateProvisionsAccount(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoCreate: true, TriggerEvents: true})
	ctx := context.Background()

	res, err := svc.Reconcile(ctx, assertion.Assertion{
		"email":     {"a@x.com"},
		"username":  {"alice"},
		"firstname": {"Alice"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Created {
		t.Error("expected Created")
	}
	if res.Account.ID == 0 {
		t.Error("expected assigned account ID")
	}
	if res.Account.Email != "a@x.com" {
		t.Errorf("email = %q, want a@x.com", res.Account.Email)
	}
	if res.Account.FirstName != "Alice" {
		t.Errorf("firstname = %q, want Alice", res.Account.FirstName)
	}
	if res.Account.AuthMethod != domain.AuthMethodSAML {
		t.Errorf("auth method = %q, want %q", res.Account.AuthMethod, domain.AuthMethodSAML)
	}
	if res.Credential == "" || len(res.Credential) != security.CredentialLength {
		t.Errorf("credential = %q, want %d random chars", res.Credential, security.CredentialLength)
	}
	if res.Account.PasswordHash == "" || res.Account.PasswordHash == res.Credential {
		t.Error("stored credential must be hashed")
	}
	if res.Account.FirstAccess.IsZero() {
		t.Error("first access should be initialized on provisioning")
	}
	if len(env.emitter.events) != 1 || env.emitter.events[0].Type != eventsdomain.TypeAccountCreated {
		t.Errorf("want exactly one created event, got %+v", env.emitter.events)
	}
	if len(env.store.byID) != 1 {
		t.Errorf("want exactly one account, got %d", len(env.store.byID))
	}
}

func TestReconcile_AutoCreateRequiresUsername(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoCreate: true})
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, assertion.Assertion{"email": {"a@x.com"}})
	if !errors.Is(err, ErrUsernameRequired) {
		t.Fatalf("want ErrUsernameRequired, got %v", err)
	}
	if len(env.store.byID) != 0 {
		t.Error("no account should be created without a username")
	}
}

func TestReconcile_UnknownIdentityNoAutoCreate(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoCreate: false})
	ctx := context.Background()
	asrt := assertion.Assertion{"email": {"a@x.com"}, "username": {"alice"}}

	for i := 0; i < 2; i++ { // idempotent: same error, no side effects
		_, err := svc.Reconcile(ctx, asrt)
		if !errors.Is(err, ErrUnknownIdentity) {
			t.Fatalf("attempt %d: want ErrUnknownIdentity, got %v", i+1, err)
		}
	}
	if len(env.store.byID) != 0 || env.store.fieldWrites != 0 || len(env.emitter.events) != 0 {
		t.Error("no side effects expected when auto-create is off")
	}
}

func TestReconcile_ExistingAccountNoAutoUpdate(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoUpdate: false, TriggerEvents: true})
	ctx := context.Background()
	env.store.byID[1] = &domain.Account{
		ID: 1, Username: "alice", Email: "a@x.com", FirstName: "Old",
		AuthMethod: domain.AuthMethodSAML,
		FirstAccess: time.Now().UTC(), TimeModified: time.Now().UTC(),
	}

	res, err := svc.Reconcile(ctx, assertion.Assertion{
		"email":     {"a@x.com"},
		"firstname": {"New"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Created {
		t.Error("existing account must not report Created")
	}
	if res.Account.ID != 1 {
		t.Errorf("account id = %d, want 1", res.Account.ID)
	}
	if res.Account.FirstName != "Old" {
		t.Errorf("firstname = %q; no sync expected with autoUpdate off", res.Account.FirstName)
	}
	if env.store.fieldWrites != 0 {
		t.Errorf("field writes = %d, want 0", env.store.fieldWrites)
	}
	if len(env.emitter.events) != 0 {
		t.Errorf("events = %d, want 0", len(env.emitter.events))
	}
	if res.Credential != "" {
		t.Error("existing account must not carry a generated credential")
	}
}

func TestReconcile_ExistingAccountAutoUpdate(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoUpdate: true, TriggerEvents: true})
	ctx := context.Background()
	hash := "$2a$04$existinghashexistinghash"
	env.store.byID[1] = &domain.Account{
		ID: 1, Username: "alice", Email: "a@x.com", FirstName: "Old",
		AuthMethod: domain.AuthMethodSAML, PasswordHash: hash,
		FirstAccess: time.Now().UTC(), TimeModified: time.Now().UTC(),
	}

	res, err := svc.Reconcile(ctx, assertion.Assertion{
		"email":     {"a@x.com"},
		"firstname": {"New"},
		"lastname":  {""}, // empty values never overwrite
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Account.FirstName != "New" {
		t.Errorf("firstname = %q, want New", res.Account.FirstName)
	}
	if env.store.byID[1].PasswordHash != hash {
		t.Error("existing credential must never be overwritten")
	}
	if len(env.emitter.events) != 1 || env.emitter.events[0].Type != eventsdomain.TypeAccountUpdated {
		t.Errorf("want exactly one updated event, got %+v", env.emitter.events)
	}
}

func TestReconcile_MatcherFieldNeverOverwritten(t *testing.T) {
	svc, env := newTestService(t, "username", Policy{AutoUpdate: true})
	ctx := context.Background()
	env.store.byID[1] = &domain.Account{
		ID: 1, Username: "alice", Email: "old@x.com",
		AuthMethod: domain.AuthMethodSAML,
		FirstAccess: time.Now().UTC(), TimeModified: time.Now().UTC(),
	}

	// Assertion carries a different value for the matcher attribute itself.
	res, err := svc.Reconcile(ctx, assertion.Assertion{
		"username": {"alice"},
		"email":    {"new@x.com"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if env.store.byID[1].Username != "alice" {
		t.Errorf("matcher field changed to %q", env.store.byID[1].Username)
	}
	if res.Account.Email != "new@x.com" {
		t.Errorf("non-matcher field should sync; email = %q", res.Account.Email)
	}
}

func TestReconcile_NologinAccountRefused(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoCreate: true, AutoUpdate: true})
	ctx := context.Background()
	env.store.byID[1] = &domain.Account{
		ID: 1, Username: "alice", Email: "a@x.com",
		AuthMethod: domain.AuthMethodNoLogin,
	}

	_, err := svc.Reconcile(ctx, assertion.Assertion{
		"email": {"a@x.com"}, "username": {"alice"}, "firstname": {"Alice"},
	})
	if !errors.Is(err, ErrLoginDisabled) {
		t.Fatalf("want ErrLoginDisabled, got %v", err)
	}
	if env.store.fieldWrites != 0 {
		t.Error("no writes expected for refused login")
	}
	if len(env.audit.entries) != 1 || env.audit.entries[0].Action != "login_disabled" {
		t.Errorf("want one login_disabled audit entry, got %+v", env.audit.entries)
	}
	if env.audit.entries[0].AccountID != 1 {
		t.Errorf("audit account id = %d, want 1", env.audit.entries[0].AccountID)
	}
}

func TestReconcile_DisabledMethodRefused(t *testing.T) {
	svc, _ := newTestService(t, "email", Policy{})
	ctx := context.Background()
	store := svc.accounts.(*memAccountStore)
	store.byID[1] = &domain.Account{
		ID: 1, Username: "alice", Email: "a@x.com",
		AuthMethod: "ldap", // not in the enabled set
	}

	_, err := svc.Reconcile(ctx, assertion.Assertion{"email": {"a@x.com"}})
	if !errors.Is(err, ErrLoginDisabled) {
		t.Fatalf("want ErrLoginDisabled, got %v", err)
	}
}

func TestReconcile_DeletedAccountRefused(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoCreate: true})
	ctx := context.Background()
	env.store.deleted["a@x.com"] = true

	_, err := svc.Reconcile(ctx, assertion.Assertion{
		"email": {"a@x.com"}, "username": {"alice"},
	})
	if !errors.Is(err, ErrDeletedAccountLogin) {
		t.Fatalf("want ErrDeletedAccountLogin, got %v", err)
	}
	if len(env.store.byID) != 0 {
		t.Error("deleted identity must never be re-provisioned")
	}
	if len(env.audit.entries) != 1 || env.audit.entries[0].Action != "login_deleted" {
		t.Errorf("want one login_deleted audit entry, got %+v", env.audit.entries)
	}
}

func TestReconcile_DisabledTakesPriorityOverDeleted(t *testing.T) {
	// A live nologin match and a deleted record for the same value:
	// the disabled refusal wins for audit clarity.
	svc, env := newTestService(t, "email", Policy{})
	ctx := context.Background()
	env.store.byID[1] = &domain.Account{
		ID: 1, Username: "alice", Email: "a@x.com", AuthMethod: domain.AuthMethodNoLogin,
	}
	env.store.deleted["a@x.com"] = true

	_, err := svc.Reconcile(ctx, assertion.Assertion{"email": {"a@x.com"}})
	if !errors.Is(err, ErrLoginDisabled) {
		t.Fatalf("want ErrLoginDisabled, got %v", err)
	}
	if env.audit.entries[0].Action != "login_disabled" {
		t.Errorf("audit action = %q, want login_disabled", env.audit.entries[0].Action)
	}
}

func TestReconcile_LegacyEmptyAuthMethodRepaired(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{})
	ctx := context.Background()
	env.store.byID[1] = &domain.Account{
		ID: 1, Username: "alice", Email: "a@x.com", AuthMethod: "",
		FirstAccess: time.Now().UTC(),
	}

	res, err := svc.Reconcile(ctx, assertion.Assertion{"email": {"a@x.com"}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Account.AuthMethod != domain.AuthMethodSAML {
		t.Errorf("auth method = %q, want %q", res.Account.AuthMethod, domain.AuthMethodSAML)
	}
	if env.store.byID[1].AuthMethod != domain.AuthMethodSAML {
		t.Error("repair must be persisted")
	}
}

func TestReconcile_CustomProfileFields(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoCreate: true})
	ctx := context.Background()

	res, err := svc.Reconcile(ctx, assertion.Assertion{
		"email":                    {"a@x.com"},
		"username":                 {"alice"},
		"profile_field_department": {"Physics"},
		"profile_field_nosuch":     {"dropped"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Account.Profile["department"] != "Physics" {
		t.Errorf("profile department = %q, want Physics", res.Account.Profile["department"])
	}
	if _, ok := res.Account.Profile["nosuch"]; ok {
		t.Error("unknown short names must be dropped, not stored")
	}
	// Custom attributes must never land in standard fields.
	if env.store.byID[res.Account.ID].FirstName != "" || env.store.byID[res.Account.ID].LastName != "" {
		t.Error("custom field leaked into standard fields")
	}
	vals := env.registry.values[res.Account.ID]
	if len(vals) != 1 || vals[1] != "Physics" {
		t.Errorf("registry values = %v, want only department", vals)
	}
}

func TestReconcile_FirstAccessInitialized(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoUpdate: true})
	ctx := context.Background()
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.store.byID[1] = &domain.Account{
		ID: 1, Username: "alice", Email: "a@x.com",
		AuthMethod: domain.AuthMethodSAML, TimeModified: modified,
	}

	res, err := svc.Reconcile(ctx, assertion.Assertion{"email": {"a@x.com"}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Account.FirstAccess.Equal(modified) {
		t.Errorf("first access = %v, want %v (time modified)", res.Account.FirstAccess, modified)
	}
	if !env.store.byID[1].FirstAccess.Equal(modified) {
		t.Error("first access must be persisted")
	}
}

func TestReconcile_ConcurrentCreateConflict(t *testing.T) {
	svc, env := newTestService(t, "email", Policy{AutoCreate: true})
	ctx := context.Background()
	env.store.createErr = accountrepo.ErrDuplicateMatcher

	_, err := svc.Reconcile(ctx, assertion.Assertion{
		"email": {"a@x.com"}, "username": {"alice"},
	})
	if !errors.Is(err, ErrCreateConflict) {
		t.Fatalf("want ErrCreateConflict, got %v", err)
	}
}

func TestReconcile_ScenarioNewIdentity(t *testing.T) {
	// Assertion {email, username, firstname}, matcher=email, no existing
	// account, autoCreate on.
	svc, _ := newTestService(t, "email", Policy{AutoCreate: true})
	ctx := context.Background()

	res, err := svc.Reconcile(ctx, assertion.Assertion{
		"email": {"a@x.com"}, "username": {"alice"}, "firstname": {"Alice"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	a := res.Account
	if a.ID == 0 || a.Email != "a@x.com" || a.FirstName != "Alice" ||
		a.Username != "alice" || a.AuthMethod != domain.AuthMethodSAML {
		t.Errorf("provisioned account = %+v", a)
	}
}
