package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the standardized API response envelope.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody represents a structured error response.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination holds pagination information.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination describes page of perPage items out of total.
func NewPagination(page, perPage, total int) *Pagination {
	p := &Pagination{Page: page, PerPage: perPage, TotalItems: total}
	if perPage > 0 {
		p.TotalPages = (total + perPage - 1) / perPage
	}
	return p
}

// Metadata includes request tracing and the server instant the response was
// built. Timed clients use ServerTime to correct their countdown for skew.
type Metadata struct {
	RequestID  string    `json:"request_id"`
	ServerTime time.Time `json:"server_time"`
}

// ────────────────────────────────────────────────────────────────────────────
// Helper builders
// ────────────────────────────────────────────────────────────────────────────

// Success sends a successful JSON response with the given status code and data.
func Success(c *gin.Context, statusCode int, data interface{}) {
	write(c, statusCode, Response{Data: data})
}

// SuccessWithPagination sends a successful response with pagination metadata.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	write(c, statusCode, Response{Data: data, Pagination: pagination})
}

// Fail sends an error response with an error code and no field-level details.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	write(c, statusCode, Response{Error: errorBody(code, nil)})
}

// FailWithFields sends an error response with field-level validation details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	write(c, statusCode, Response{Error: errorBody(code, fields)})
}

// FailWithData sends an error response that still carries data, such as
// the instant a start cooldown ends.
func FailWithData(c *gin.Context, statusCode int, code ErrCode, data interface{}) {
	write(c, statusCode, Response{Data: data, Error: errorBody(code, nil)})
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.Abort()
	Fail(c, statusCode, code)
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func write(c *gin.Context, statusCode int, body Response) {
	body.Metadata = buildMetadata(c)
	c.JSON(statusCode, body)
}

func errorBody(code ErrCode, fields map[string]string) *ErrorBody {
	return &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}
}

func buildMetadata(c *gin.Context) Metadata {
	id := RequestID(c)
	if id == "" {
		id = uuid.NewString()
	}
	return Metadata{
		RequestID:  id,
		ServerTime: time.Now().UTC(),
	}
}
