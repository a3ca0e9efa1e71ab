package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	authHeaderName = "Authorization"
	userIDKey      = "auth.userID"
	emailKey       = "auth.email"
)

// RequireUser rejects requests without a valid bearer token and stores the
// caller's user ID in the gin context.
func RequireUser(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authHeaderName)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": "missing authorization header"})
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": "invalid auth header"})
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": err.Error()})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(emailKey, claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated caller, or "" outside RequireUser.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
