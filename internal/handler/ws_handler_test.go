package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stemsi/gateprep-backend/internal/model"
	ws "github.com/stemsi/gateprep-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *server) startAttempt(mt model.MockTest) model.TestAttempt {
	s.t.Helper()
	code, env := s.do(&student, http.MethodPost, "/api/v1/tests/"+strconv.FormatInt(mt.ID, 10)+"/start", nil)
	require.Equal(s.t, http.StatusCreated, code)
	return decode[model.StartAttemptResponse](s.t, env.Data).Attempt
}

func (s *server) dial(srv *httptest.Server, id model.Identity, attemptID int64) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/v1/attempts/" + strconv.FormatInt(attemptID, 10) + "/stream?token=" + s.token(id)
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestAttemptStream(t *testing.T) {
	s := newServer(t)
	mt, qs := s.seed()
	attempt := s.startAttempt(mt)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	conn, _, err := s.dial(srv, student, attempt.ID)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionPing}))
	var pong ws.PongResponse
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, ws.EventPong, pong.Event)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{
		Action: ws.ActionAutosave,
		QID:    strconv.FormatInt(qs[0].ID, 10),
		Answer: "A",
	}))
	var saved ws.SavedResponse
	require.NoError(t, conn.ReadJSON(&saved))
	assert.Equal(t, ws.EventSaved, saved.Event)
	assert.Equal(t, 1, saved.Count)
	assert.Equal(t, "A", s.mr.HGet("attempt:"+strconv.FormatInt(attempt.ID, 10)+":draft", strconv.FormatInt(qs[0].ID, 10)))

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionAutosave, QID: "not-a-question", Answer: "x"}))
	var invalid ws.ErrorResponse
	require.NoError(t, conn.ReadJSON(&invalid))
	assert.Equal(t, ws.EventError, invalid.Event)
	assert.Equal(t, "VALIDATION_ERROR", invalid.Code)
	assert.NotEmpty(t, invalid.Fields)

	require.NoError(t, conn.WriteJSON(gin.H{"action": "cheat"}))
	var unknown ws.ErrorResponse
	require.NoError(t, conn.ReadJSON(&unknown))
	assert.Equal(t, "UNKNOWN_ACTION", unknown.Code)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{
		Action:  ws.ActionSubmit,
		Answers: map[string]string{strconv.FormatInt(qs[1].ID, 10): "41"},
	}))
	var graded ws.GradedResponse
	require.NoError(t, conn.ReadJSON(&graded))
	assert.Equal(t, ws.EventGraded, graded.Event)
	assert.Equal(t, attempt.ID, graded.AttemptID)
	assert.InDelta(t, 2.0, graded.TotalScore, 1e-9)
	assert.InDelta(t, 40.0, graded.Percentage, 1e-9)
	assert.Equal(t, 1, graded.CorrectCount)

	// The server closes the stream once the attempt is graded.
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestAttemptStream_RejectedBeforeUpgrade(t *testing.T) {
	s := newServer(t)
	mt, _ := s.seed()
	attempt := s.startAttempt(mt)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	_, resp, err := s.dial(srv, classmate, attempt.ID)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = s.dial(srv, professor, attempt.ID)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAttemptStream_RejectsOverlongAnswers(t *testing.T) {
	s := newServer(t)
	mt, qs := s.seed()
	attempt := s.startAttempt(mt)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	conn, _, err := s.dial(srv, student, attempt.ID)
	require.NoError(t, err)
	defer conn.Close()

	qid := strconv.FormatInt(qs[0].ID, 10)
	long := strings.Repeat("é", model.MaxAnswerLength+1)
	draftKey := "attempt:" + strconv.FormatInt(attempt.ID, 10) + ":draft"

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionAutosave, QID: qid, Answer: long}))
	var autosaveErr ws.ErrorResponse
	require.NoError(t, conn.ReadJSON(&autosaveErr))
	assert.Equal(t, "VALIDATION_ERROR", autosaveErr.Code)
	assert.Contains(t, autosaveErr.Fields, "answers["+qid+"]")
	assert.False(t, s.mr.Exists(draftKey))

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionSubmit, Answers: map[string]string{qid: long}}))
	var submitErr ws.ErrorResponse
	require.NoError(t, conn.ReadJSON(&submitErr))
	assert.Equal(t, "VALIDATION_ERROR", submitErr.Code)
	assert.Contains(t, submitErr.Fields, "answers["+qid+"]")

	// The attempt is still open and a well-formed submit is graded.
	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionSubmit, Answers: map[string]string{qid: "A"}}))
	var graded ws.GradedResponse
	require.NoError(t, conn.ReadJSON(&graded))
	assert.Equal(t, ws.EventGraded, graded.Event)
	assert.InDelta(t, 2.0, graded.TotalScore, 1e-9)
}
