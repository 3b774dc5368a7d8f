// Package http assembles the engine's HTTP surface: domain handlers behind
// the shared middleware chain, plus the health and metrics endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentmemory/internal/platform/middleware"
)

// Registrar is anything that can mount its routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the router with the standard middleware chain and mounts
// every handler.
func NewRouter(logger *slog.Logger, handlers ...Registrar) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
