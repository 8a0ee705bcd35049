package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okCheck(ctx context.Context) error { return nil }

func TestHealthHandler_Live(t *testing.T) {
	h := NewHealthHandler(nil)

	w := httptest.NewRecorder()
	h.Live(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		wantFailed []string
	}{
		{
			name:       "all dependencies up",
			checks:     map[string]HealthCheck{"database": okCheck, "redis": okCheck, "storage": okCheck},
			wantStatus: http.StatusOK,
		},
		{
			name: "bucket missing",
			checks: map[string]HealthCheck{
				"database": okCheck,
				"redis":    okCheck,
				"storage":  func(ctx context.Context) error { return errors.New("bucket snaps does not exist") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantFailed: []string{"storage"},
		},
		{
			name: "database and redis down",
			checks: map[string]HealthCheck{
				"database": func(ctx context.Context) error { return errors.New("missing tables: photos") },
				"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
				"storage":  okCheck,
			},
			wantStatus: http.StatusServiceUnavailable,
			wantFailed: []string{"database", "redis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks)
			w := httptest.NewRecorder()
			h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var res ReadinessResponse
			if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(res.Dependencies) != len(tt.checks) {
				t.Fatalf("dependencies = %v, want %d entries", res.Dependencies, len(tt.checks))
			}

			failed := map[string]bool{}
			for _, name := range tt.wantFailed {
				failed[name] = true
			}
			for name, status := range res.Dependencies {
				if failed[name] {
					if status.Status != "unavailable" || status.Error == "" {
						t.Errorf("%s = %+v, want unavailable with error", name, status)
					}
				} else if status.Status != "ok" {
					t.Errorf("%s = %+v, want ok", name, status)
				}
			}
			if (len(tt.wantFailed) == 0) != (res.Status == "ok") {
				t.Errorf("overall status = %q", res.Status)
			}
		})
	}
}

func TestHealthHandler_ReadyTimesOutSlowCheck(t *testing.T) {
	h := NewHealthHandler(map[string]HealthCheck{
		"redis": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	h.timeout = 20 * time.Millisecond

	w := httptest.NewRecorder()
	h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
