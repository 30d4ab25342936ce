package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl lets clients cache responses for maxAgeSeconds.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAgeSeconds))
		c.Next()
	}
}

// NoStore forbids caching. Session state changes on every request.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
