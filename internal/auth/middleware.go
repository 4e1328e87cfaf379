package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// principalKey is where the middleware stores the verified email in the gin
// context.
const principalKey = "principalEmail"

// RequireAuth gates a route on a valid token cookie. A missing, malformed or
// expired token is rejected with 401 before any database access happens. On
// success the decoded principal email is attached to the request context.
//
// This is the only gate at the middleware layer; Admin checks live inside the
// individual operations.
func RequireAuth(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(CookieName)
		if err != nil || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized access."})
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized access."})
			return
		}

		c.Set(principalKey, claims.Email)
		c.Next()
	}
}

// PrincipalEmail returns the authenticated email attached by RequireAuth, or
// "" on an unprotected route.
func PrincipalEmail(c *gin.Context) string {
	return c.GetString(principalKey)
}
