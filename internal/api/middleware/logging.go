package middleware

import (
	"time"

	"chatroom-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// LogApi logs one line per request and puts a request scoped logger, tagged
// with the request id, into the request context.
func LogApi(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Writer.Header().Set(RequestIDHeader, requestID)

		reqLog := log.With("requestID", requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))

		c.Next()

		keyvals := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"clientIP", c.ClientIP(),
			"userAgent", c.Request.UserAgent(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			keyvals = append(keyvals, "error", errs)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			reqLog.Error("request", keyvals...)
		case status >= 400:
			reqLog.Warn("request", keyvals...)
		default:
			reqLog.Info("request", keyvals...)
		}
	}
}
