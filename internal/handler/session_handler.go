package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
)

// SessionHandler serves the candidate session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// startedSession is the payload returned by both start endpoints.
type startedSession struct {
	SessionID    uuid.UUID           `json:"session_id"`
	AssessmentID uuid.UUID           `json:"assessment_id"`
	Status       model.SessionStatus `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	QuestionIDs  []uuid.UUID         `json:"question_ids"`
	Resumed      bool                `json:"resumed"`
}

func newStartedSession(res *service.StartResult) startedSession {
	return startedSession{
		SessionID:    res.Session.ID,
		AssessmentID: res.Session.AssessmentID,
		Status:       res.Session.Status,
		StartedAt:    res.Session.CreatedAt,
		QuestionIDs:  res.Session.QuestionIDs,
		Resumed:      res.Resumed,
	}
}

func startStatus(res *service.StartResult) int {
	if res.Resumed {
		return http.StatusOK
	}
	return http.StatusCreated
}

// StartSession godoc
// POST /api/v1/candidate/assessments/:assessment_id/sessions
// Opens a new attempt or resumes the candidate's in-progress one.
func (h *SessionHandler) StartSession(c *gin.Context) {
	cand := middleware.GetCandidate(c)
	if cand == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	assessmentID, ok := paramUUID(c, "assessment_id")
	if !ok {
		return
	}

	// Public tokens are scoped to the assessment they were issued for.
	if claims := middleware.GetClaims(c); claims != nil && claims.TokenType == service.TokenTypePublic &&
		claims.AssessmentID != assessmentID.String() {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	var req model.StartSessionRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	res, err := h.sessions.Start(c.Request.Context(), assessmentID, *cand, req.AccessCode)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, startStatus(res), newStartedSession(res))
}

// GetState godoc
// GET /api/v1/candidate/sessions/:session_id/state
func (h *SessionHandler) GetState(c *gin.Context) {
	id, cand, ok := h.sessionRequest(c)
	if !ok {
		return
	}

	state, err := h.sessions.GetState(c.Request.Context(), id, cand)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// SubmitAnswer godoc
// PUT /api/v1/candidate/sessions/:session_id/answers
// Stores a selection; a null selected_index clears it.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	id, cand, ok := h.sessionRequest(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID := uuid.MustParse(req.QuestionID)

	session, err := h.sessions.RecordAnswer(c.Request.Context(), id, cand, questionID, req.SelectedIndex)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id":    questionID,
		"selected_index": req.SelectedIndex,
		"answered_count": session.AnsweredCount(),
	})
}

// FlagViolation godoc
// POST /api/v1/candidate/sessions/:session_id/violations
func (h *SessionHandler) FlagViolation(c *gin.Context) {
	id, cand, ok := h.sessionRequest(c)
	if !ok {
		return
	}

	var req model.ViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessions.RecordViolation(c.Request.Context(), id, cand, model.ViolationKind(req.Kind))
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"violation_count": session.ViolationCount()})
}

// RecordView godoc
// POST /api/v1/candidate/sessions/:session_id/views
func (h *SessionHandler) RecordView(c *gin.Context) {
	id, cand, ok := h.sessionRequest(c)
	if !ok {
		return
	}

	var req model.QuestionViewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID := uuid.MustParse(req.QuestionID)

	session, err := h.sessions.RecordView(c.Request.Context(), id, cand, questionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": questionID, "first_viewed_at": session.QuestionViews[questionID]})
}

// Submit godoc
// POST /api/v1/candidate/sessions/:session_id/submit
// Completes and grades the session, then returns its result.
func (h *SessionHandler) Submit(c *gin.Context) {
	id, cand, ok := h.sessionRequest(c)
	if !ok {
		return
	}

	if _, err := h.sessions.Submit(c.Request.Context(), id, cand); err != nil {
		failFromError(c, err)
		return
	}
	result, err := h.sessions.Result(c.Request.Context(), id, cand)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetPaper godoc
// GET /api/v1/candidate/sessions/:session_id/paper
func (h *SessionHandler) GetPaper(c *gin.Context) {
	id, cand, ok := h.sessionRequest(c)
	if !ok {
		return
	}

	paper, err := h.sessions.Paper(c.Request.Context(), id, cand)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// GetResult godoc
// GET /api/v1/candidate/sessions/:session_id/result
func (h *SessionHandler) GetResult(c *gin.Context) {
	id, cand, ok := h.sessionRequest(c)
	if !ok {
		return
	}

	result, err := h.sessions.Result(c.Request.Context(), id, cand)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *SessionHandler) sessionRequest(c *gin.Context) (uuid.UUID, *model.Candidate, bool) {
	cand := middleware.GetCandidate(c)
	if cand == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, nil, false
	}
	id, ok := paramUUID(c, "session_id")
	if !ok {
		return uuid.Nil, nil, false
	}
	return id, cand, true
}
