// Package http wires the chi router: platform middleware stack first,
// then the guard-protected route groups.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inkwell/internal/guard"
	"inkwell/internal/platform/middleware"
	"inkwell/internal/store"
)

type RouterConfig struct {
	Logger   *slog.Logger
	Guard    *guard.Guard
	Tokens   TokenIssuer
	Store    store.Store
	Metadata *middleware.Metadata
	Metrics  *Metrics
	Timeout  time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(cfg.Metadata.Handler)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(cfg.Metrics.Middleware)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	NewAuthHandler(cfg.Tokens, cfg.Guard, cfg.Logger).Register(r)
	NewPostHandler(cfg.Store, cfg.Guard, cfg.Logger).Register(r)
	NewTagHandler(cfg.Store, cfg.Guard, cfg.Logger).Register(r)
	NewCommentHandler(cfg.Store, cfg.Guard, cfg.Logger).Register(r)

	return r
}
