// Package handlers implements the HTTP endpoints of the location API.
//
// Location endpoints report client-visible failures as apierr variants so
// their bodies match the canonical envelope byte for byte. Anything outside
// that taxonomy (unknown routes, internal faults) uses the compact
// ErrorResponse:
//
//	HTTP/1.1 404 Not Found
//	{"request_id": "123e4567-e89b-12d3-a456-426614174000", "code": "not_found", "message": "route not found"}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guyt101z/ichnaea/internal/http/middleware"
)

// ErrorResponse is the compact error envelope.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code
	Code string `json:"code" example:"not_found"`
	// Human-readable message
	Message string `json:"message" example:"route not found"`
}

// fail aborts with an ErrorResponse. 5xx are logged with the request logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail, used by the router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// internalError hides err from the client and logs it.
func internalError(c *gin.Context, err error) {
	middleware.LoggerFrom(c).Error().Err(err).Msg("location search failed")
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}
