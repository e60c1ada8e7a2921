package rest

import (
	"context"
	"net/http"
	"time"
)

// pinger checks that the backing store answers.
type pinger interface {
	Ping(ctx context.Context) error
}

// sessionCounter reports how many progress sessions are live.
type sessionCounter interface {
	Len() int
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	store    pinger
	sessions sessionCounter
	driver   string
	version  string
}

// NewHealthHandler creates a HealthHandler. driver names the backing store
// in the health report.
func NewHealthHandler(store pinger, sessions sessionCounter, driver, version string) *HealthHandler {
	return &HealthHandler{store: store, sessions: sessions, driver: driver, version: version}
}

// HealthResponse is the JSON response for /health and /ready.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Sessions   *int                  `json:"sessions,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now()})
}

// Ready is the readiness probe: 200 when the store answers, 503 otherwise.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "down", Timestamp: time.Now()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now()})
}

// Health reports store latency, live session count and version.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     "ok",
		Version:    h.version,
		Components: make(map[string]CompStatus, 1),
	}

	latency, err := h.ping(r.Context())
	if err != nil {
		resp.Status = "down"
		resp.Components[h.driver] = CompStatus{Status: "down"}
	} else {
		resp.Components[h.driver] = CompStatus{Status: "ok", Latency: latency.String()}
	}
	if h.sessions != nil {
		n := h.sessions.Len()
		resp.Sessions = &n
	}
	resp.Timestamp = time.Now()

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *HealthHandler) ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	return time.Since(start), err
}
