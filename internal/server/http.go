// Package server assembles the HTTP router from handler dependencies.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps holds handler dependencies for the HTTP router.
type Deps struct {
	// Reconcile serves POST /v1/reconcile. Required.
	Reconcile Registrar
	// Health serves GET /healthz. Required.
	Health Registrar
	// Audit serves the audit query routes. May be nil.
	Audit Registrar
	// Log is the request logger. May be nil.
	Log *zap.Logger
}

// Registrar mounts routes on a router. Implemented by the feature handlers.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the service router with standard middleware and all
// registered handlers.
func NewRouter(deps Deps) *chi.Mux {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.Reconcile != nil {
		deps.Reconcile.Register(r)
	}
	if deps.Audit != nil {
		deps.Audit.Register(r)
	}
	return r
}

// requestLogger logs one line per request with method, path, status, and latency.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
