package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
	// ContextKeyCandidate is the Gin context key for the resolved candidate identity.
	ContextKeyCandidate = "candidate"
)

var errTokenMissing = errors.New("authorization header or token query required")

// RequireCandidateJWT accepts candidate and public tokens from the
// Authorization header and stores the candidate identity in the context.
func RequireCandidateJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService, false)
		if err != nil {
			abortTokenError(c, err)
			return
		}
		setCandidate(c, claims)
	}
}

// RequireCandidateWSAuth is RequireCandidateJWT for WebSocket upgrades,
// which carry the token in the ?token= query parameter.
func RequireCandidateWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService, true)
		if err != nil {
			abortTokenError(c, err)
			return
		}
		setCandidate(c, claims)
	}
}

// RequireAdminJWT validates an admin JWT. The query token fallback serves
// EventSource clients, which cannot send headers.
func RequireAdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService, true)
		if err != nil {
			abortTokenError(c, err)
			return
		}
		if claims.TokenType != service.TokenTypeAdmin {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetCandidate retrieves the candidate set by RequireCandidateJWT.
func GetCandidate(c *gin.Context) *model.Candidate {
	val, exists := c.Get(ContextKeyCandidate)
	if !exists {
		return nil
	}
	cand, ok := val.(model.Candidate)
	if !ok {
		return nil
	}
	return &cand
}

func setCandidate(c *gin.Context, claims *service.Claims) {
	cand, err := claims.Candidate()
	if err != nil {
		response.AbortFail(c, http.StatusForbidden, response.ErrCandidateAccessOnly)
		return
	}
	c.Set(ContextKeyClaims, claims)
	c.Set(ContextKeyCandidate, cand)
	c.Next()
}

func abortTokenError(c *gin.Context, err error) {
	if errors.Is(err, errTokenMissing) {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
}

func extractAndValidateClaims(c *gin.Context, authService *service.AuthService, allowQuery bool) (*service.Claims, error) {
	tokenStr := ""

	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = strings.TrimSpace(parts[1])
		}
	}
	if tokenStr == "" && allowQuery {
		tokenStr = c.Query("token")
	}
	if tokenStr == "" {
		return nil, errTokenMissing
	}

	return authService.ValidateToken(tokenStr)
}
