package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyRequestID is the Gin context key for the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyLogger is the Gin context key for the request-scoped logger.
	ContextKeyLogger = "request_logger"

	HeaderRequestID = "X-Request-ID"

	maxRequestIDLength = 128
)

// RequestIDMiddleware assigns every request an ID and a logger tagged with
// it. A client-supplied X-Request-ID is kept when it is short printable
// ASCII; anything else is replaced so it cannot forge log lines.
// The logger is also attached to the request context for zerolog.Ctx.
func RequestIDMiddleware(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if !validRequestID(reqID) {
			reqID = uuid.NewString()
		}

		reqLog := base.With().Str("request_id", reqID).Logger()
		c.Set(ContextKeyRequestID, reqID)
		c.Set(ContextKeyLogger, reqLog)
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))
		c.Header(HeaderRequestID, reqID)
		c.Next()
	}
}

// RequestID returns the ID assigned by RequestIDMiddleware, or "".
func RequestID(c *gin.Context) string {
	id, _ := c.Get(ContextKeyRequestID)
	s, _ := id.(string)
	return s
}

// Logger returns the request-scoped logger. Outside RequestIDMiddleware it
// falls back to the context logger, which is disabled unless one was set.
func Logger(c *gin.Context) zerolog.Logger {
	if v, ok := c.Get(ContextKeyLogger); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return l
		}
	}
	return *zerolog.Ctx(c.Request.Context())
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
