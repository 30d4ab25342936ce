package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
)

// PublicHandler serves share-code endpoints for anonymous candidates.
type PublicHandler struct {
	sessions *service.SessionService
	content  *service.ContentService
	auth     *service.AuthService
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(sessions *service.SessionService, content *service.ContentService, auth *service.AuthService) *PublicHandler {
	return &PublicHandler{
		sessions: sessions,
		content:  content,
		auth:     auth,
	}
}

// GetAssessment godoc
// GET /api/v1/public/assessments/:share_code
// Only reports whether an access code is required, never the code.
func (h *PublicHandler) GetAssessment(c *gin.Context) {
	a, err := h.content.GetAssessmentByShareCode(c.Request.Context(), c.Param("share_code"))
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, a.Info())
}

// StartSession godoc
// POST /api/v1/public/assessments/:share_code/sessions
// Starts an anonymous attempt keyed by the contact fingerprint and issues
// a public candidate token for the rest of the session.
func (h *PublicHandler) StartSession(c *gin.Context) {
	var req model.PublicStartRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	fingerprint, err := h.auth.Fingerprint(req.Email)
	if err != nil {
		failFromError(c, err)
		return
	}
	res, a, err := h.sessions.StartByShareCode(c.Request.Context(), c.Param("share_code"),
		model.ContactCandidate(fingerprint), req.AccessCode)
	if err != nil {
		failFromError(c, err)
		return
	}

	token, err := h.auth.GeneratePublicToken(fingerprint, a.ID)
	if err != nil {
		log := requestLog(c, "public_handler")
		log.Error().Err(err).Msg("Failed to sign public token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, startStatus(res), gin.H{
		"session":    newStartedSession(res),
		"assessment": a.Info(),
		"token":      token,
	})
}
