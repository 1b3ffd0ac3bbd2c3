package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"
)

const probeTimeout = 2 * time.Second

// probe checks one dependency; a nil error means ready.
type probe func(ctx context.Context) error

type componentReport struct {
	Ready      bool   `json:"ready"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type healthReport struct {
	Status     string                     `json:"status"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Components map[string]componentReport `json:"components"`
}

type HealthHandler struct {
	probes map[string]probe
}

// NewHealthHandler wires the readiness probes: the database pool and the
// attachment upload directory, the two dependencies a request can hit.
func NewHealthHandler(db *sql.DB, uploadDir string) *HealthHandler {
	return &HealthHandler{
		probes: map[string]probe{
			"postgres": db.PingContext,
			"storage": func(ctx context.Context) error {
				_, err := os.Stat(uploadDir)
				return err
			},
		},
	}
}

// pingHandler reports liveness only; it must not touch dependencies.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler runs every probe and reports 503 unless all pass.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	report := healthReport{
		Status:     "healthy",
		CheckedAt:  time.Now(),
		Components: make(map[string]componentReport, len(h.probes)),
	}

	statusCode := http.StatusOK
	for name, check := range h.probes {
		start := time.Now()
		entry := componentReport{Ready: true}
		if err := check(ctx); err != nil {
			entry.Ready = false
			entry.Error = err.Error()
			report.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
		entry.DurationMs = time.Since(start).Milliseconds()
		report.Components[name] = entry
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(report)
}
