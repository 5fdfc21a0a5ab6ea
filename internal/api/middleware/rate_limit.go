package middleware

import (
	"context"
	"fmt"
	"time"

	"chatroom-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitMiddleware is a no-op when built without a limiter, which is the
// case when Redis is not configured.
type RateLimitMiddleware struct {
	limiter RateLimiter
}

func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// RateLimit limits authenticated requests per user and path.
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return rm.limit(requests, window, func(c *gin.Context) (string, bool) {
		userID, ok := GetUserID(c)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("rate_limit:%d:%s", userID, c.FullPath()), true
	})
}

// RateLimitIP limits public requests per client IP and path.
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return rm.limit(requests, window, func(c *gin.Context) (string, bool) {
		return fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.FullPath()), true
	})
}

func (rm *RateLimitMiddleware) limit(requests int, window time.Duration, keyFor func(*gin.Context) (string, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rm.limiter == nil {
			c.Next()
			return
		}

		key, ok := keyFor(c)
		if !ok {
			response.Abort(c, response.CodeUnauthorized, "", "")
			return
		}

		allowed, err := rm.limiter.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			response.Abort(c, response.CodeInternalError, "Rate limit check failed", "")
			return
		}

		if !allowed {
			response.Abort(c, response.CodeRateLimited, "",
				fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window))
			return
		}

		c.Next()
	}
}
