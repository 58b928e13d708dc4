package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindBody(t *testing.T, body string, dst interface{}) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBindSubmitAnswers(t *testing.T) {
	var req model.SubmitAnswersRequest
	fields := bindBody(t, `{"answers":{"12":"B","13":" 42 "}}`, &req)
	require.Nil(t, fields)
	assert.Equal(t, "B", req.Answers["12"])
}

func TestBindSubmitAnswersRejectsBadKeys(t *testing.T) {
	var req model.SubmitAnswersRequest
	fields := bindBody(t, `{"answers":{"abc":"B"}}`, &req)
	require.NotNil(t, fields)
	require.Len(t, fields, 1)
	for _, msg := range fields {
		assert.Contains(t, msg, "question id")
	}
}

func TestBindEmptyAnswersAllowed(t *testing.T) {
	var req model.SubmitAnswersRequest
	assert.Nil(t, bindBody(t, `{}`, &req))
}

func TestBindCreateMockTest(t *testing.T) {
	var req model.CreateMockTestRequest
	fields := bindBody(t, `{"title":"ab","subject_id":0,"difficulty":"brutal"}`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "subject_id")
	assert.Contains(t, fields, "difficulty")
}

func TestBindMalformedJSON(t *testing.T) {
	var req model.CreateMockTestRequest
	fields := bindBody(t, `{"title":`, &req)
	assert.Contains(t, fields, "detail")
}
