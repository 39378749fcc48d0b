// Package api exposes the planner over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsned/endfield-planner-server/internal/planner/engine"
	"github.com/rsned/endfield-planner-server/internal/planner/metrics"
	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// StatusSource reports import bookkeeping for the status endpoint.
type StatusSource interface {
	Status(ctx context.Context) (planner.CatalogStatus, error)
}

// Options configures a Server. Every field except the engine is optional.
type Options struct {
	Status      StatusSource
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
	CORSOrigins []string
}

// Server serves the planner REST API.
type Server struct {
	engine   *engine.Engine
	status   StatusSource
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	origins  []string
}

// NewServer creates a new API server over eng.
func NewServer(eng *engine.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		engine:   eng,
		status:   opts.Status,
		metrics:  opts.Metrics,
		gatherer: gatherer,
		logger:   logger,
		origins:  origins,
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(middleware.RealIP)
	r.Use(s.recovery)
	r.Use(s.logging)
	r.Use(s.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/decide", s.handleDecide)
		r.Get("/tags", s.handleTags)
		r.Get("/status", s.handleStatus)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleSearchItems)
			r.Post("/status", s.handleSetItemStatus)
			r.Delete("/status", s.handleResetStatus)
		})

		r.Route("/plan", func(r chi.Router) {
			r.Get("/", s.handleFarmingPlan)
			r.Get("/score", s.handleMatchScore)
			r.Put("/priority", s.handleSetPriority)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Patch("/settings", s.handleTaskSettings)
			r.Post("/{taskID}/toggle", s.handleToggleTask)
			r.Post("/{taskID}/subtasks/{subID}/toggle", s.handleToggleSubtask)
			r.Post("/{taskID}/hide", s.handleHideTask)
			r.Post("/{taskID}/restore", s.handleRestoreTask)
		})
	})

	return r
}
