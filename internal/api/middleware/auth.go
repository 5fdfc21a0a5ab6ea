package middleware

import (
	"strings"

	"chatroom-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

type TokenVerifier interface {
	Verify(token string) (uint, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
	}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// user id under "user_id".
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, response.CodeUnauthorized, "", "authorization header is required")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			response.Abort(c, response.CodeUnauthorized, "", "authorization header must be a bearer token")
			return
		}

		userID, err := am.tokens.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			response.Abort(c, response.CodeUnauthorized, "", "invalid token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// GetUserID returns the id RequireAuth stored on c.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
