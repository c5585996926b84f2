// Package handler exposes the refused-login audit trail to operators.
// Read-only; rows are written by the reconciliation path.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sso-reconciler/internal/audit/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Handler serves the audit query endpoints.
type Handler struct {
	repo repository.Repository
}

// NewHandler returns an audit HTTP handler backed by the given repository.
func NewHandler(repo repository.Repository) *Handler {
	return &Handler{repo: repo}
}

// Register mounts the audit routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/audit", h.list)
	r.Get("/v1/audit/{id}", h.getByID)
}

type auditLogResponse struct {
	ID           string    `json:"id"`
	AccountID    int64     `json:"account_id"`
	MatcherValue string    `json:"matcher_value"`
	Action       string    `json:"action"`
	IP           string    `json:"ip"`
	Metadata     string    `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 500"})
		return
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must not be negative"})
		return
	}

	logs, err := h.repo.ListRecent(r.Context(), int32(limit), int32(offset))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "audit lookup failed"})
		return
	}
	out := make([]auditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditLogResponse{
			ID:           l.ID,
			AccountID:    l.AccountID,
			MatcherValue: l.MatcherValue,
			Action:       l.Action,
			IP:           l.IP,
			Metadata:     l.Metadata,
			CreatedAt:    l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": out})
}

func (h *Handler) getByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	log, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "audit lookup failed"})
		return
	}
	if log == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "audit log not found"})
		return
	}
	writeJSON(w, http.StatusOK, auditLogResponse{
		ID:           log.ID,
		AccountID:    log.AccountID,
		MatcherValue: log.MatcherValue,
		Action:       log.Action,
		IP:           log.IP,
		Metadata:     log.Metadata,
		CreatedAt:    log.CreatedAt,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
