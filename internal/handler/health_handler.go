package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is a dependency that can report its health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks  map[string]HealthChecker
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. Nil checkers are skipped.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	active := make(map[string]HealthChecker, len(checks))
	for name, c := range checks {
		if c != nil {
			active[name] = c
		}
	}
	return &HealthHandler{checks: active, timeout: 2 * time.Second}
}

// Health reports that the process is up
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready reports whether every dependency answers
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].HealthCheck(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
