package respond

import (
	"github.com/gin-gonic/gin"

	"healthjournal-backend/internal/shared/telemetry"
)

// ErrorResponse is the standardized error body: a human-readable message plus
// a stable machine code clients can branch on.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error sends a standardized error response and logs it.
func Error(c *gin.Context, status int, code, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
