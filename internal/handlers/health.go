package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const readinessTimeout = 3 * time.Second

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) error

// DependencyStatus is the readiness result for one dependency
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadinessResponse is the body of GET /health/ready
type ReadinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a handler that runs checks, keyed by dependency name, on readiness requests
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: readinessTimeout}
}

// Live handles GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready. Every check runs concurrently; any failure
// makes the whole response 503.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		res = ReadinessResponse{Status: "ok", Dependencies: make(map[string]DependencyStatus, len(h.checks))}
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check HealthCheck) {
			defer wg.Done()
			status := DependencyStatus{Status: "ok"}
			if err := check(ctx); err != nil {
				status = DependencyStatus{Status: "unavailable", Error: err.Error()}
			}
			mu.Lock()
			res.Dependencies[name] = status
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	var failed []string
	for name, status := range res.Dependencies {
		if status.Status != "ok" {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		res.Status = "unavailable"
		log.Warn().Strs("dependencies", failed).Msg("Readiness check failed")
		respondJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
