package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
)

const UserIDKey = "userId"

// TokenValidator resolves a session token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// First try to get token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			tokenString = c.GetHeader("x-auth-token")
		}

		// Browsers cannot set headers on a websocket handshake
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			abortWith(c, apperrors.New(apperrors.Unauthorized, "No token, authorization denied"))
			return
		}

		userID, err := tokens.ValidateToken(tokenString)
		if err != nil {
			abortWith(c, apperrors.New(apperrors.Unauthorized, "Token is not valid"))
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func abortWith(c *gin.Context, err error) {
	msg, details := apperrors.Public(err)
	body := gin.H{"error": msg}
	if len(details) > 0 {
		body["details"] = details
	}
	c.AbortWithStatusJSON(apperrors.StatusCode(err), body)
}
