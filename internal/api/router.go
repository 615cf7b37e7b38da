package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/broker"
)

type RouterConfig struct {
	AdminToken         string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

func NewRouter(b *broker.Broker, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 120
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.RateLimitPerMinute))
	r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))

	matches := NewMatchingHandler(b, logger)
	explain := NewExplainHandler(b)
	admin := NewAdminHandler(b)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ClientIDMiddleware)

		r.Post("/matching/find", matches.Find)
		r.Get("/manufacturers/{id}", matches.Manufacturer)
		r.Post("/scoring/explain", explain.Explain)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminToken))
			r.Post("/matching/broadcast", matches.Broadcast)
			r.Get("/admin/settings", admin.Settings)
			r.Delete("/admin/cache/{order_id}", admin.InvalidateCache)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
