package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gateprep-backend/internal/response"
	"github.com/stemsi/gateprep-backend/internal/service"
)

// LeaderboardHandler serves the ranked leaderboard snapshot.
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetLeaderboard godoc
// GET /api/v1/leaderboard?limit=
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"limit": "must be a positive integer"})
			return
		}
		limit = n
	}

	snap, err := h.leaderboardService.Snapshot(c.Request.Context(), limit)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}
