package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/middleware"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/response"
	"github.com/stemsi/gateprep-backend/internal/service"
	ws "github.com/stemsi/gateprep-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams autosave and submit for an open attempt.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            logger.Component(log, "ws_handler"),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Upgrades to WebSocket for autosave and instant grading.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := paramID(c, "attempt_id")
	if !ok {
		return
	}

	// Reject before upgrading so the client gets a normal HTTP error.
	if err := h.attemptService.VerifyOpen(c.Request.Context(), id, attemptID); err != nil {
		failService(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(ws.MaxMessageSize)

	hbCtx, stopHeartbeat := context.WithCancel(context.Background())
	defer stopHeartbeat()
	ws.StartHeartbeat(hbCtx, conn)

	wsLog := h.log.With().
		Str("conn_id", uuid.NewString()).
		Int64("user_id", id.UserID).
		Int64("attempt_id", attemptID).
		Logger()

	wsLog.Info().Msg("Student connected")

	// A submit that has started must commit even if the client drops.
	ctx := context.WithoutCancel(c.Request.Context())

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(ctx, conn, wsLog, id, attemptID, &msg)
		case ws.ActionSubmit:
			if h.handleSubmit(ctx, conn, wsLog, id, attemptID, &msg) {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "submitted"))
				return
			}
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, string(response.ErrUnknownStreamAction),
				"unknown action: "+string(msg.Action), nil)
		}
	}
}

func (h *WSHandler) handleAutosave(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, id model.Identity, attemptID int64, msg *ws.RequestPayload) {
	answers := msg.DraftAnswers()
	if len(answers) == 0 {
		_ = ws.WriteError(conn, string(response.ErrValidation), "q_id and ans, or answers, are required", nil)
		return
	}

	if err := h.attemptService.SaveDraft(ctx, id, attemptID, answers); err != nil {
		h.writeServiceError(conn, wsLog, err)
		return
	}

	_ = ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Count: len(answers)})
}

// handleSubmit reports whether the attempt was graded.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, id model.Identity, attemptID int64, msg *ws.RequestPayload) bool {
	result, err := h.attemptService.Submit(ctx, id, attemptID, msg.Answers)
	if err != nil {
		h.writeServiceError(conn, wsLog, err)
		return false
	}

	wsLog.Info().
		Float64("score", result.Attempt.TotalScore).
		Int("correct", result.CorrectCount).
		Msg("Attempt submitted over stream")

	_ = ws.WriteTyped(conn, ws.GradedResponse{
		Event:        ws.EventGraded,
		AttemptID:    result.Attempt.ID,
		TotalScore:   result.Attempt.TotalScore,
		Percentage:   result.Attempt.Percentage,
		CorrectCount: result.CorrectCount,
		ResultURL:    result.ResultURL,
	})
	return true
}

func (h *WSHandler) writeServiceError(conn *websocket.Conn, wsLog zerolog.Logger, err error) {
	_, code, fields := classify(err)
	if code == response.ErrInternal {
		wsLog.Error().Err(err).Msg("Stream action failed")
	}
	_ = ws.WriteError(conn, string(code), response.GetMessage(code), fields)
}
