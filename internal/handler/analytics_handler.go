package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gateprep-backend/internal/middleware"
	"github.com/stemsi/gateprep-backend/internal/response"
	"github.com/stemsi/gateprep-backend/internal/service"
)

// AnalyticsHandler serves the caller's own progress reports.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Performance godoc
// GET /api/v1/me/performance
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	report, err := h.analyticsService.Performance(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// Activity godoc
// GET /api/v1/me/activity
func (h *AnalyticsHandler) Activity(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	days, err := h.analyticsService.Activity(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"activity": days})
}

// Recommendations godoc
// GET /api/v1/me/recommendations
func (h *AnalyticsHandler) Recommendations(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	recs, err := h.analyticsService.Recommendations(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, recs)
}
