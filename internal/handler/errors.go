package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gateprep-backend/internal/response"
	"github.com/stemsi/gateprep-backend/internal/service"
)

// classify maps a service error onto an HTTP status and response code.
func classify(err error) (int, response.ErrCode, map[string]string) {
	var fields map[string]string
	var fe *service.FieldError
	if errors.As(err, &fe) {
		fields = fe.Fields
	}

	switch {
	case errors.Is(err, service.ErrTestNotFound):
		return http.StatusNotFound, response.ErrTestNotFound, nil
	case errors.Is(err, service.ErrAttemptNotFound):
		return http.StatusNotFound, response.ErrAttemptNotFound, nil
	case errors.Is(err, service.ErrNotAttemptOwner):
		return http.StatusForbidden, response.ErrNotAttemptOwner, nil
	case errors.Is(err, service.ErrStudentOnly):
		return http.StatusForbidden, response.ErrStudentAccessOnly, nil
	case errors.Is(err, service.ErrAuthorOnly):
		return http.StatusForbidden, response.ErrAuthorAccessOnly, nil
	case errors.Is(err, service.ErrAttemptCompleted):
		return http.StatusConflict, response.ErrAttemptCompleted, nil
	case errors.Is(err, service.ErrAttemptInProgress):
		return http.StatusConflict, response.ErrAttemptInProgress, nil
	case errors.Is(err, service.ErrInvalidAnswers), errors.Is(err, service.ErrInvalidQuestion):
		return http.StatusBadRequest, response.ErrValidation, fields
	case errors.Is(err, service.ErrMarksExceedTotal):
		return http.StatusBadRequest, response.ErrMarksExceedTotal, fields
	case errors.Is(err, service.ErrInvalidReference):
		return http.StatusBadRequest, response.ErrInvalidReference, fields
	default:
		return http.StatusInternalServerError, response.ErrInternal, nil
	}
}

// failService writes the error response for a service error. Unexpected
// errors are attached to the context for the access log.
func failService(c *gin.Context, err error) {
	status, code, fields := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.FailWithFields(c, status, code, fields)
}

// paramID parses a positive int64 path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
