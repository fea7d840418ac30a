package handler

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"card-admin/internal/domain"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string         `json:"status"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ReadinessCheck is one dependency probed by Ready.
type ReadinessCheck struct {
	Name   string
	Pinger domain.Pinger
	// Metadata is reported alongside a successful ping; optional.
	Metadata func() map[string]any
}

// Ready returns readiness check with dependencies
func Ready(checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		// Check dependencies in parallel
		results := make(map[string]HealthCheckResult, len(checks))
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, check := range checks {
			wg.Add(1)
			go func(check ReadinessCheck) {
				defer wg.Done()
				result := runCheck(ctx, check)
				mu.Lock()
				results[check.Name] = result
				mu.Unlock()
			}(check)
		}
		wg.Wait()

		allHealthy := true
		for _, result := range results {
			if result.Status != "up" {
				allHealthy = false
			}
		}

		response := map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    results,
		}

		status := http.StatusOK
		if allHealthy {
			response["status"] = "ready"
		} else {
			response["status"] = "not_ready"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	}
}

func runCheck(ctx context.Context, check ReadinessCheck) HealthCheckResult {
	start := time.Now()
	err := check.Pinger.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:    "down",
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		}
	}

	result := HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
	}
	if check.Metadata != nil {
		result.Metadata = check.Metadata()
	}
	return result
}

// PoolMetadata reports connection pool figures for the readiness response.
func PoolMetadata(db *sql.DB) func() map[string]any {
	return func() map[string]any {
		stats := db.Stats()
		return map[string]any{
			"connections_open":   stats.OpenConnections,
			"connections_in_use": stats.InUse,
			"connections_idle":   stats.Idle,
			"max_open":           stats.MaxOpenConnections,
		}
	}
}
