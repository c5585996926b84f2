// Package handler exposes reconciliation over HTTP to the SAML SP front
// end. The front end verifies signatures and trust before posting the
// assertion here; this service never sees raw SAML XML.
package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sso-reconciler/internal/assertion"
	"sso-reconciler/internal/hooks"
	"sso-reconciler/internal/reconcile"
	"sso-reconciler/internal/server"
)

// Handler serves the reconcile endpoint.
type Handler struct {
	svc   *reconcile.Service
	hooks *hooks.Registry
	log   *zap.Logger
}

// NewHandler returns a reconcile HTTP handler. hooks may be nil when no
// post-login notification is configured.
func NewHandler(svc *reconcile.Service, hookRegistry *hooks.Registry, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, hooks: hookRegistry, log: log}
}

// Register mounts the reconcile routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/reconcile", h.reconcile)
}

type reconcileRequest struct {
	Attributes assertion.Assertion `json:"attributes"`
}

type reconcileResponse struct {
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
	Created   bool   `json:"created"`
}

// errorResponse is intentionally generic: the client never learns whether
// an account exists, is deleted, or is disabled. The specific kind is
// logged server-side.
type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := server.WithClientIP(r.Context(), remoteIP(r))

	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Attributes) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "attributes are required"})
		return
	}

	res, err := h.svc.Reconcile(ctx, req.Attributes)
	if err != nil {
		h.log.Info("reconciliation refused",
			zap.String("client_ip", server.ClientIP(ctx)),
			zap.Error(err))
		writeJSON(w, statusFor(err), errorResponse{Error: "authentication failed"})
		return
	}

	if h.hooks != nil {
		h.hooks.Dispatch(ctx, res.Account, res.MatcherValue, res.Credential)
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, reconcileResponse{
		AccountID: res.Account.ID,
		Username:  res.Account.Username,
		Created:   res.Created,
	})
}

// statusFor maps reconciliation failures to HTTP statuses. Refusals that
// would reveal account state all share 401.
func statusFor(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrMissingMatcherAttribute),
		errors.Is(err, reconcile.ErrUsernameRequired):
		return http.StatusBadRequest
	case errors.Is(err, reconcile.ErrCreateConflict):
		return http.StatusConflict
	case errors.Is(err, reconcile.ErrLoginDisabled),
		errors.Is(err, reconcile.ErrDeletedAccountLogin),
		errors.Is(err, reconcile.ErrUnknownIdentity):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// remoteIP resolves the client address for audit rows. X-Forwarded-For may
// carry a proxy chain; only the first element is the client.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
