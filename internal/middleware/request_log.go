package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
)

// RequestLogger writes one structured line per request through the
// request-scoped logger, so every line carries the request ID.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := response.Logger(c).With().Str("component", "http").Logger()
		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Debug()
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("Request handled")
	}
}
