package router

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string          `json:"status"`
	Uptime    float64         `json:"uptime"`
	Timestamp time.Time       `json:"timestamp"`
	Scheduler schedulerHealth `json:"scheduler"`
	Links     healthLinks     `json:"_links"`
}

type schedulerHealth struct {
	State   string     `json:"state"`
	LastRun *time.Time `json:"last_run"`
}

type healthLinks struct {
	Self link `json:"self"`
}

type link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

// health reports liveness, uptime in seconds and the scheduler snapshot.
func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	now := r.now()
	resp := healthResponse{
		Status:    "ok",
		Uptime:    now.Sub(r.startedAt).Seconds(),
		Timestamp: now.UTC(),
		Links:     healthLinks{Self: link{Href: "/health", Method: http.MethodGet}},
	}
	if r.status != nil {
		resp.Scheduler.State = r.status.State().String()
		if last := r.status.LastRun(); !last.IsZero() {
			resp.Scheduler.LastRun = &last
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}
