package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in ErrorResponse.Code alongside the HTTP status.
const (
	CodeInvalidInput  = 4000
	CodeUnauthorized  = 4010
	CodeNotFound      = 4040
	CodeConflict      = 4090
	CodeRateLimited   = 4290
	CodeInternalError = 5000
)

var msg = map[int]string{
	CodeInvalidInput:  "Invalid input data",
	CodeUnauthorized:  "Unauthorized",
	CodeNotFound:      "Not found",
	CodeConflict:      "Conflict",
	CodeRateLimited:   "Rate limit exceeded",
	CodeInternalError: "Internal server error",
}

var statusFor = map[int]int{
	CodeInvalidInput:  http.StatusBadRequest,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeNotFound:      http.StatusNotFound,
	CodeConflict:      http.StatusConflict,
	CodeRateLimited:   http.StatusTooManyRequests,
	CodeInternalError: http.StatusInternalServerError,
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Message returns the default message for code.
func Message(code int) string {
	if m, ok := msg[code]; ok {
		return m
	}
	return msg[CodeInternalError]
}

// Status returns the HTTP status that goes with code.
func Status(code int) int {
	if s, ok := statusFor[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Abort writes an ErrorResponse for code and stops the handler chain.
// An empty message falls back to the default for code.
func Abort(c *gin.Context, code int, message, details string) {
	if message == "" {
		message = Message(code)
	}
	c.AbortWithStatusJSON(Status(code), ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
