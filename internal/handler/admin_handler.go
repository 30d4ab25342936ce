package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
)

// AdminHandler serves session administration and analytics endpoints.
type AdminHandler struct {
	sessions  *service.SessionService
	reaper    *service.Reaper
	analytics *service.AnalyticsService
	content   *service.ContentService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	sessions *service.SessionService,
	reaper *service.Reaper,
	analytics *service.AnalyticsService,
	content *service.ContentService,
) *AdminHandler {
	return &AdminHandler{
		sessions:  sessions,
		reaper:    reaper,
		analytics: analytics,
		content:   content,
	}
}

// AbandonSession godoc
// POST /api/v1/admin/sessions/:session_id/abandon
func (h *AdminHandler) AbandonSession(c *gin.Context) {
	id, ok := paramUUID(c, "session_id")
	if !ok {
		return
	}

	var req model.AbandonSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessions.Abandon(c.Request.Context(), id, req.Reason)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session_id":     session.ID,
		"status":         session.Status,
		"completed_at":   session.CompletedAt,
		"abandon_reason": session.AbandonReason,
	})
}

// ReapSessions godoc
// POST /api/v1/admin/assessments/:assessment_id/reap
// Times out every expired in-progress session of the assessment.
func (h *AdminHandler) ReapSessions(c *gin.Context) {
	id, ok := paramUUID(c, "assessment_id")
	if !ok {
		return
	}
	if _, err := h.content.GetAssessment(c.Request.Context(), id); err != nil {
		failFromError(c, err)
		return
	}

	reaped, err := h.reaper.ReapExpired(c.Request.Context(), &id)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reaped": reaped})
}

// ListResults godoc
// GET /api/v1/admin/assessments/:assessment_id/results?page=&per_page=
func (h *AdminHandler) ListResults(c *gin.Context) {
	id, ok := paramUUID(c, "assessment_id")
	if !ok {
		return
	}
	page, perPage := pageParams(c)

	rows, total, err := h.analytics.Results(c.Request.Context(), id, page, perPage)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": rows}, response.NewPagination(page, perPage, total))
}

// GetAnalytics godoc
// GET /api/v1/admin/assessments/:assessment_id/analytics
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	id, ok := paramUUID(c, "assessment_id")
	if !ok {
		return
	}

	analytics, err := h.analytics.Assessment(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, analytics)
}

// GetHeatmap godoc
// GET /api/v1/admin/sessions/:session_id/heatmap
func (h *AdminHandler) GetHeatmap(c *gin.Context) {
	id, ok := paramUUID(c, "session_id")
	if !ok {
		return
	}

	heatmap, err := h.analytics.Heatmap(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, heatmap)
}

// RefreshCache godoc
// POST /api/v1/admin/assessments/:assessment_id/refresh-cache
// Drops cached rules and questions so the next read hits the database.
func (h *AdminHandler) RefreshCache(c *gin.Context) {
	id, ok := paramUUID(c, "assessment_id")
	if !ok {
		return
	}

	if err := h.content.Refresh(c.Request.Context(), id); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessment_id": id, "refreshed": true})
}
