// Package http provides ambient HTTP handlers and middleware shared by the
// transport layer: health/readiness/liveness probes, Prometheus metrics,
// request logging, and panic recovery. The read-side API itself lives in
// internal/transport/httpapi.
package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"feedhub/pkg/ratelimit"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks"`    // Status of each check item
	Version   string                 `json:"version"`   // Application version
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string                 `json:"status"`            // "healthy" or "unhealthy"
	Message string                 `json:"message,omitempty"` // Optional status message
	Details map[string]interface{} `json:"details,omitempty"` // Optional additional details
}

// RateLimiterHealthInfo contains health information for the IP rate limiter.
type RateLimiterHealthInfo struct {
	ActiveKeys     int    `json:"active_keys"`     // Number of active keys being tracked
	MemoryBytes    int64  `json:"memory_bytes"`    // Estimated memory usage in bytes
	CircuitBreaker string `json:"circuit_breaker"` // Circuit breaker state (closed/open/half-open)
}

// HealthHandler handles health check endpoint requests. feedhub's
// subscription store is optional (cmd/server falls back to an in-memory
// store when FEEDHUB_DATABASE_URL is unset), so a nil DB is reported as
// not_configured rather than unhealthy. Rate limiter status is reported
// for operational visibility when the IP limiter is enabled.
type HealthHandler struct {
	DB      *sql.DB
	Version string

	// IP rate limiter components (optional; nil when rate limiting is
	// disabled via RATE_LIMIT_ENABLED=false).
	IPRateLimiterStore ratelimit.RateLimitStore
	IPCircuitBreaker   *ratelimit.CircuitBreaker
	RateLimiterEnabled bool
}

// ServeHTTP performs health checks and returns the application health status.
// It checks database connectivity (when configured) and connection pool
// statistics, plus rate limiter state. Returns 200 OK if healthy, or 503
// Service Unavailable if any check fails.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus)
	allHealthy := true

	if h.DB != nil {
		dbCheck := h.checkDatabase(ctx)
		checks["database"] = dbCheck
		if dbCheck.Status == "unhealthy" {
			allHealthy = false
		}
	} else {
		checks["database"] = CheckStatus{
			Status:  "not_configured",
			Message: "running against the in-memory subscription store",
		}
	}

	if h.RateLimiterEnabled {
		checks["rate_limiter"] = h.checkRateLimiter(ctx)
	}

	// "degraded" is a warning state, not a failure: the system is still
	// operational.
	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("health: failed to encode response: %v", err)
	}
}

// checkDatabase checks database connectivity and returns connection pool statistics.
func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if err := h.DB.PingContext(ctx); err != nil {
		return CheckStatus{
			Status:  "unhealthy",
			Message: err.Error(),
		}
	}

	stats := h.DB.Stats()
	details := map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_idle_time_closed": stats.MaxIdleTimeClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}

	// Guard against zero division when MaxOpenConnections is 0 (unlimited/unconfigured).
	if stats.MaxOpenConnections == 0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool max connections not configured",
			Details: details,
		}
	}

	utilizationPercent := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	details["utilization_percent"] = utilizationPercent

	if utilizationPercent >= 80.0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool utilization above 80%",
			Details: details,
		}
	}

	return CheckStatus{
		Status:  "healthy",
		Details: details,
	}
}

// checkRateLimiter reports the operational status of the IP rate limiter:
// active key count, memory usage, and circuit breaker state. Always
// reported as "healthy" since a tripped breaker means the limiter fails
// open (availability prioritized), which is informational, not a failure.
func (h *HealthHandler) checkRateLimiter(ctx context.Context) CheckStatus {
	info := RateLimiterHealthInfo{CircuitBreaker: "not_configured"}

	if h.IPRateLimiterStore != nil {
		if keyCount, err := h.IPRateLimiterStore.KeyCount(ctx); err == nil {
			info.ActiveKeys = keyCount
		}
		if memUsage, err := h.IPRateLimiterStore.MemoryUsage(ctx); err == nil {
			info.MemoryBytes = memUsage
		}
	}
	if h.IPCircuitBreaker != nil {
		info.CircuitBreaker = h.IPCircuitBreaker.State().String()
	}

	return CheckStatus{
		Status:  "healthy",
		Details: map[string]interface{}{"ip": info},
	}
}

// ReadyHandler handles Kubernetes readiness probe requests. With no
// database configured it tracks liveness: the in-memory store is ready as
// soon as the process is up.
type ReadyHandler struct {
	DB *sql.DB
}

// ServeHTTP performs readiness checks and returns 200 OK if ready,
// or 503 Service Unavailable if a configured database is not reachable.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			http.Error(w, "database not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		log.Printf("ready: failed to write response: %v", err)
	}
}

// LiveHandler handles Kubernetes liveness probe requests.
// It performs a lightweight check to verify the application is responsive.
type LiveHandler struct{}

// ServeHTTP performs a simple liveness check and always returns 200 OK
// if the application is running and able to respond.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		log.Printf("alive: failed to write response: %v", err)
	}
}
