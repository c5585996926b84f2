// Package handler serves readiness/liveness for Kubernetes, load
// balancers, and CI.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Pinger reports backing-store reachability (e.g. *sql.DB).
type Pinger interface {
	Ping() error
}

// Handler serves the health endpoint.
type Handler struct {
	pinger Pinger
}

// NewHandler returns a health handler. pinger may be nil; then readiness
// skips the DB ping.
func NewHandler(pinger Pinger) *Handler {
	return &Handler{pinger: pinger}
}

// Register mounts the health route on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.healthz)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	if h.pinger != nil {
		if err := h.pinger.Ping(); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]string{"status": "degraded", "db": "unreachable"}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
