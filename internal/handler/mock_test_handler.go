package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gateprep-backend/internal/middleware"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/response"
	"github.com/stemsi/gateprep-backend/internal/service"
	"github.com/stemsi/gateprep-backend/internal/validator"
)

// MockTestHandler handles the test catalogue and question authoring.
type MockTestHandler struct {
	testService *service.MockTestService
}

// NewMockTestHandler creates a new MockTestHandler.
func NewMockTestHandler(testService *service.MockTestService) *MockTestHandler {
	return &MockTestHandler{testService: testService}
}

// ListTests godoc
// GET /api/v1/tests?subject_id=&difficulty=&page=&per_page=
func (h *MockTestHandler) ListTests(c *gin.Context) {
	var f model.MockTestFilter
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "10"))

	if raw := c.Query("subject_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"subject_id": "must be a positive integer"})
			return
		}
		f.SubjectID = &id
	}
	switch d := model.Difficulty(c.Query("difficulty")); d {
	case "", model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		f.Difficulty = d
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"difficulty": "must be one of easy, medium, hard"})
		return
	}

	tests, pagination, err := h.testService.List(c.Request.Context(), f)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, pagination)
}

// GetTest godoc
// GET /api/v1/tests/:test_id
// Returns the test plus the caller's last completed attempts on it.
func (h *MockTestHandler) GetTest(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	testID, ok := paramID(c, "test_id")
	if !ok {
		return
	}

	detail, err := h.testService.Detail(c.Request.Context(), id, testID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// CreateTest godoc
// POST /api/v1/tests
func (h *MockTestHandler) CreateTest(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)

	var req model.CreateMockTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Create(c.Request.Context(), id, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, test)
}

// AddQuestion godoc
// POST /api/v1/tests/:test_id/questions
func (h *MockTestHandler) AddQuestion(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	testID, ok := paramID(c, "test_id")
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.testService.AddQuestion(c.Request.Context(), id, testID, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, question)
}

// ListSubjects godoc
// GET /api/v1/subjects
func (h *MockTestHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.testService.ListSubjects(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}
