package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gateprep-backend/internal/database"
	"github.com/stemsi/gateprep-backend/internal/response"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports liveness plus the state of backing stores.
type HealthHandler struct {
	checks map[string]database.HealthCheck
}

func NewHealthHandler(checks map[string]database.HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health runs every check under a shared deadline. Any failure turns the
// response into a 503 so load balancers drain the instance.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = "degraded"
			continue
		}
		results[name] = "ok"
	}

	payload := gin.H{"status": status}
	if len(results) > 0 {
		payload["checks"] = results
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	response.Success(c, code, payload)
}
