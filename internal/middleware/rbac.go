package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
)

// RequirePermission checks that the admin JWT carries the permission.
func RequirePermission(perm model.Permission) gin.HandlerFunc {
	return RequireAnyPermission(perm)
}

// RequireAnyPermission checks that the admin JWT carries at least one of perms.
func RequireAnyPermission(perms ...model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, granted := range claims.Permissions {
			for _, want := range perms {
				if granted == string(want) {
					c.Next()
					return
				}
			}
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
	}
}
