package server

import (
	"net/http"

	"github.com/cloo-solutions/askdesk/internal/api"
	"github.com/cloo-solutions/askdesk/internal/api/handlers"
	"github.com/cloo-solutions/askdesk/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes int64 = 55 << 20

type RouterConfig struct {
	KnowledgeHandler *handlers.KnowledgeHandler
	DocumentHandler  *handlers.DocumentHandler
	QueryHandler     *handlers.QueryHandler

	Logger *zap.Logger
	// Observer records per-route latency; nil disables it.
	Observer middleware.RequestObserver
	// Registry backs /metrics; nil leaves the endpoint unmounted.
	Registry *prometheus.Registry
	// MaxBodyBytes caps request bodies. Uploads need headroom over the file limit for multipart framing.
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(logger, cfg.Observer))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Requester)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}/status", cfg.DocumentHandler.Status)
			r.Post("/{id}/reingest", cfg.DocumentHandler.Reingest)
			r.Post("/{id}/archive", cfg.DocumentHandler.Archive)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})

		r.Route("/queries", func(r chi.Router) {
			r.Post("/", cfg.QueryHandler.Ask)
			r.Get("/history", cfg.QueryHandler.History)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", cfg.KnowledgeHandler.List)
			r.Get("/{id}", cfg.KnowledgeHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", cfg.KnowledgeHandler.Create)
				r.Put("/{id}", cfg.KnowledgeHandler.Update)
				r.Delete("/{id}", cfg.KnowledgeHandler.Retire)
			})
		})
	})

	return r
}
