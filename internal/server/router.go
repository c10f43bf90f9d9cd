package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/api"
	"github.com/cloo-solutions/ragdoc/internal/api/handlers"
	"github.com/cloo-solutions/ragdoc/internal/api/middleware"
)

const defaultMaxBodyBytes int64 = 32 << 20

type RouterConfig struct {
	Logger          *zap.Logger
	APIKey          string
	MaxBodyBytes    int64
	DocumentHandler *handlers.DocumentHandler
	QueryHandler    *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.MaxBodyBytes(maxBody))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Post("/upload", cfg.DocumentHandler.Upload)
		r.Post("/query", cfg.QueryHandler.Query)
		r.Get("/chunks/{documentID}", cfg.DocumentHandler.Chunks)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{documentID}", cfg.DocumentHandler.Get)
			r.Post("/{documentID}/reindex", cfg.DocumentHandler.Reindex)
		})
	})

	return r
}
