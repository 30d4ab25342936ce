package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

var denialCodes = map[service.DenialReason]response.ErrCode{
	service.DenialOutsideWindow:     response.ErrOutsideWindow,
	service.DenialBadAccessCode:     response.ErrBadAccessCode,
	service.DenialAttemptsExhausted: response.ErrAttemptsExhausted,
	service.DenialCooldownActive:    response.ErrCooldownActive,
}

// errorStatus maps a service error to its HTTP status and code.
// ok is false for unexpected errors.
func errorStatus(err error) (status int, code response.ErrCode, ok bool) {
	var ie *service.IntegrityError
	switch {
	case errors.As(err, &ie):
		return http.StatusForbidden, response.ErrIntegrityViolation, true
	case errors.Is(err, service.ErrSessionExpired):
		return http.StatusConflict, response.ErrSessionExpired, true
	case errors.Is(err, service.ErrAlreadyTerminal):
		return http.StatusConflict, response.ErrAlreadyTerminal, true
	case errors.Is(err, service.ErrNotTerminal):
		return http.StatusConflict, response.ErrNotTerminal, true
	case errors.Is(err, service.ErrTooManyConflicts):
		return http.StatusConflict, response.ErrConcurrentOperation, true
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrAssessmentNotFound):
		return http.StatusNotFound, response.ErrNotFound, true
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions, true
	case errors.Is(err, service.ErrInvalidViolation):
		return http.StatusBadRequest, response.ErrValidation, true
	}
	return http.StatusInternalServerError, response.ErrInternal, false
}

// failFromError writes the envelope for err. Denials carry the cooldown end
// instant when there is one. Unexpected errors are logged through the
// request-scoped logger.
func failFromError(c *gin.Context, err error) {
	log := response.Logger(c)
	if d, ok := service.IsDenial(err); ok {
		code := denialCodes[d.Reason]
		log.Debug().Str("reason", string(d.Reason)).Str("route", c.FullPath()).Msg("Start denied")
		if d.CooldownEndsAt != nil {
			response.FailWithData(c, http.StatusForbidden, code, gin.H{"cooldown_ends_at": d.CooldownEndsAt})
			return
		}
		response.Fail(c, http.StatusForbidden, code)
		return
	}

	status, code, ok := errorStatus(err)
	if !ok {
		log.Error().Err(err).Str("route", c.FullPath()).Msg("Request failed")
	}
	response.Fail(c, status, code)
}

// requestLog tags the request-scoped logger with a handler component.
func requestLog(c *gin.Context, component string) zerolog.Logger {
	return response.Logger(c).With().Str("component", component).Logger()
}

// paramUUID parses a path parameter, writing INVALID_ID on failure.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads page and per_page, clamped to sane bounds.
func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 200 {
		perPage = 200
	}
	return page, perPage
}
