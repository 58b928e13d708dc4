package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gateprep-backend/internal/middleware"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/response"
	"github.com/stemsi/gateprep-backend/internal/service"
	"github.com/stemsi/gateprep-backend/internal/validator"
)

// AttemptHandler handles the student attempt lifecycle.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartTest godoc
// POST /api/v1/tests/:test_id/start
// Returns the in-progress attempt, creating it when none exists (idempotent).
func (h *AttemptHandler) StartTest(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	testID, ok := paramID(c, "test_id")
	if !ok {
		return
	}

	attempt, resumed, err := h.attemptService.StartOrResume(c.Request.Context(), id, testID)
	if err != nil {
		failService(c, err)
		return
	}

	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	response.Success(c, status, model.StartAttemptResponse{Attempt: *attempt, Resumed: resumed})
}

// TakeTest godoc
// GET /api/v1/attempts/:attempt_id
// Returns the paper and saved draft answers. This endpoint covers a page
// reload, so the frontend can restore what was already answered.
func (h *AttemptHandler) TakeTest(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	attemptID, ok := paramID(c, "attempt_id")
	if !ok {
		return
	}

	view, err := h.attemptService.TakeTest(c.Request.Context(), id, attemptID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SaveDraft godoc
// PUT /api/v1/attempts/:attempt_id/draft
func (h *AttemptHandler) SaveDraft(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	attemptID, ok := paramID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SubmitAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveDraft(c.Request.Context(), id, attemptID, req.Answers); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": len(req.Answers)})
}

// Submit godoc
// POST /api/v1/attempts/:attempt_id/submit
// Grades and completes the attempt. A second submit is a conflict.
func (h *AttemptHandler) Submit(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	attemptID, ok := paramID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SubmitAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), id, attemptID, req.Answers)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Results godoc
// GET /api/v1/attempts/:attempt_id/results
func (h *AttemptHandler) Results(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	attemptID, ok := paramID(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.attemptService.Results(c.Request.Context(), id, attemptID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
