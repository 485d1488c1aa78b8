package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-slack-scheduler/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx answer.
//
//	{"request_id":"…","code":"invalid_state","message":"scheduled message is no longer pending"}
type ErrorResponse struct {
	// Same value as the X-Request-ID response header.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Machine-readable; see the ErrCode constants.
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"scheduled message not found"`
}

// fail aborts with an ErrorResponse. Server-side failures are logged on the
// request logger; a 502 means Slack refused a delivery and is only a warning.
func fail(c *gin.Context, status int, code, msg string) {
	switch {
	case status == http.StatusBadGateway:
		middleware.LoggerFrom(c).Warn().Str("code", code).Msg(msg)
	case status >= http.StatusInternalServerError:
		middleware.LoggerFrom(c).Error().Int("status", status).Str("code", code).Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer NoRoute/NoMethod with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }
