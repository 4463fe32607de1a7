// Package router provides the data processor's HTTP surface: health and metrics.
package router

import (
	"net/http"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/scheduler"
)

// SchedulerStatus exposes the scheduler snapshot shown by the health endpoint.
type SchedulerStatus interface {
	State() scheduler.State
	LastRun() time.Time
}

// Router wraps the HTTP mux and provides route configuration.
type Router struct {
	mux       *http.ServeMux
	status    SchedulerStatus
	metrics   http.Handler
	startedAt time.Time
	now       func() time.Time
}

// NewRouter creates a router. metricsHandler serves /metrics; nil disables the route.
func NewRouter(status SchedulerStatus, metricsHandler http.Handler) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		status:    status,
		metrics:   metricsHandler,
		startedAt: time.Now(),
		now:       time.Now,
	}
	r.setupRoutes()
	return r
}

// Handler returns the HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.mux
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("/health", getOnly(r.health))
	r.mux.HandleFunc("/api/health", getOnly(r.health))

	if r.metrics != nil {
		r.mux.Handle("/metrics", r.metrics)
	}
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}
