package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-graphview/pkg/api/middleware"
)

// maxReloadBody caps the reload request body, which is ignored
const maxReloadBody = 4 << 10

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chimw.RealIP)
	r.Use(middleware.PanicRecovery(s.logger))
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Metrics(s.metrics))
	r.Use(middleware.SecurityHeaders(nil))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	limiter := middleware.NewRateLimiter(nil, s.logger)

	r.Get("/health", s.health.HTTPHandler())
	r.Get("/health/ready", s.health.ReadinessHandler())
	r.Get("/health/live", s.health.LivenessHandler())
	r.Get("/metrics", s.handleMetrics())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/graph/stats", s.handleStats)
		r.Get("/graph/frame.svg", s.handleFrameSVG)
		r.Get("/graph/frame.png", s.handleFramePNG)
		r.With(
			middleware.RateLimit(limiter, middleware.ClientIP),
			middleware.BodySizeLimit(maxReloadBody),
		).Post("/graph/reload", s.handleReload)

		r.Get("/nodes/{id}", s.handleNode)
		r.Get("/nodes/{id}/neighbors", s.handleNeighbors)
	})

	r.Method(http.MethodPost, "/graphql", s.graphql)
	r.With(middleware.RateLimit(limiter, middleware.ClientIP)).Get("/ws", s.handleWebSocket)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]any{
			"service": "graphview",
			"version": s.version,
			"uptime":  time.Since(s.startTime).Round(time.Second).String(),
		})
	})

	return r
}

func (s *Server) handleMetrics() http.HandlerFunc {
	h := promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.UpdateSystemMetrics()
		h.ServeHTTP(w, r)
	}
}
