package api

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// healthCheckTimeout bounds each component probe.
const healthCheckTimeout = 2 * time.Second

// ComponentHealth is one entry of the health report.
type ComponentHealth struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
	WebSocket  int                        `json:"websocket_clients"`
	Goroutines int                        `json:"goroutines"`
}

// handleHealth probes every registered component. Any failing required
// component makes the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{
		Status:     "ok",
		Version:    s.version,
		Components: make(map[string]ComponentHealth, len(s.health)),
		Goroutines: runtime.NumGoroutine(),
	}
	if s.hub != nil {
		report.WebSocket = s.hub.ClientCount()
	}

	healthy := true
	for _, hc := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := hc.Check(ctx)
		cancel()

		c := ComponentHealth{Status: "ok", Optional: hc.Optional}
		if err != nil {
			c.Status = "error"
			c.Error = err.Error()
			if !hc.Optional {
				healthy = false
			}
		}
		report.Components[hc.Name] = c
	}

	if !healthy {
		report.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Message: "degraded", Data: report})
		return
	}
	writeOK(w, http.StatusOK, "ok", report)
}
