package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	ws "github.com/stemsi/exstem-assessment/internal/websocket"
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

// WSHandler streams a live session over a WebSocket.
type WSHandler struct {
	sessions *service.SessionService
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/candidate/sessions/:session_id/stream
// Every action goes through the same lifecycle controller as the REST
// endpoints. The stream closes after submit or once the session is terminal.
func (h *WSHandler) SessionStream(c *gin.Context) {
	cand := middleware.GetCandidate(c)
	if cand == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := paramUUID(c, "session_id")
	if !ok {
		return
	}

	// Ownership and expiry are checked before the upgrade so failures get a
	// regular HTTP status.
	ctx := c.Request.Context()
	state, err := h.sessions.GetState(ctx, sessionID, cand)
	if err != nil {
		failFromError(c, err)
		return
	}

	wsLog := requestLog(c, "ws_handler").With().
		Str("session_id", sessionID.String()).
		Str("candidate_key", cand.Key()).
		Logger()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wsLog.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog.Info().Msg("Candidate connected")
	ws.WriteEvent(conn, ws.EventState, state)
	if state.Status.IsTerminal() {
		return
	}

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var done bool
		switch msg.Action {
		case ws.ActionAnswer:
			done = h.handleAnswer(ctx, conn, wsLog, sessionID, cand, &msg)
		case ws.ActionViolation:
			done = h.handleViolation(ctx, conn, wsLog, sessionID, cand, &msg)
		case ws.ActionView:
			done = h.handleView(ctx, conn, wsLog, sessionID, cand, &msg)
		case ws.ActionState:
			done = h.handleState(ctx, conn, wsLog, sessionID, cand)
		case ws.ActionSubmit:
			done = h.handleSubmit(ctx, conn, wsLog, sessionID, cand)
		case ws.ActionPing:
			ws.WriteEvent(conn, ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			writeCode(conn, response.ErrInvalidPayload)
		}
		if done {
			return
		}
	}
}

func (h *WSHandler) handleAnswer(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, id uuid.UUID, cand *model.Candidate, msg *ws.Request) bool {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		writeCode(conn, response.ErrInvalidID)
		return false
	}

	session, err := h.sessions.RecordAnswer(ctx, id, cand, questionID, msg.SelectedIndex)
	if err != nil {
		return writeActionError(conn, log, err)
	}
	ws.WriteEvent(conn, ws.EventSaved, gin.H{
		"question_id":    questionID,
		"selected_index": msg.SelectedIndex,
		"answered_count": session.AnsweredCount(),
	})
	return false
}

func (h *WSHandler) handleViolation(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, id uuid.UUID, cand *model.Candidate, msg *ws.Request) bool {
	session, err := h.sessions.RecordViolation(ctx, id, cand, model.ViolationKind(msg.Kind))
	if err != nil {
		return writeActionError(conn, log, err)
	}
	ws.WriteEvent(conn, ws.EventRecorded, gin.H{"violation_count": session.ViolationCount()})
	return false
}

func (h *WSHandler) handleView(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, id uuid.UUID, cand *model.Candidate, msg *ws.Request) bool {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		writeCode(conn, response.ErrInvalidID)
		return false
	}

	if _, err := h.sessions.RecordView(ctx, id, cand, questionID); err != nil {
		return writeActionError(conn, log, err)
	}
	ws.WriteEvent(conn, ws.EventRecorded, gin.H{"question_id": questionID})
	return false
}

func (h *WSHandler) handleState(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, id uuid.UUID, cand *model.Candidate) bool {
	state, err := h.sessions.GetState(ctx, id, cand)
	if err != nil {
		return writeActionError(conn, log, err)
	}
	ws.WriteEvent(conn, ws.EventState, state)
	return state.Status.IsTerminal()
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, id uuid.UUID, cand *model.Candidate) bool {
	if _, err := h.sessions.Submit(ctx, id, cand); err != nil {
		return writeActionError(conn, log, err)
	}
	result, err := h.sessions.Result(ctx, id, cand)
	if err != nil {
		return writeActionError(conn, log, err)
	}

	log.Info().Str("status", string(result.Status)).Msg("Session submitted")
	ws.WriteEvent(conn, ws.EventResult, result)
	return true
}

// writeActionError reports err to the client and tells the caller whether
// the stream should close.
func writeActionError(conn *websocket.Conn, log zerolog.Logger, err error) bool {
	_, code, ok := errorStatus(err)
	if !ok {
		log.Error().Err(err).Msg("Stream action failed")
	}
	writeCode(conn, code)
	return code == response.ErrSessionExpired || code == response.ErrAlreadyTerminal
}

func writeCode(conn *websocket.Conn, code response.ErrCode) {
	ws.WriteError(conn, string(code), response.GetMessage(code))
}
