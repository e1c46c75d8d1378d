package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/mailagent/internal/app"
)

// authMiddleware ensures the request carries a valid Bearer token and
// stores the authenticated account id in the request context.
func authMiddleware(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		claims, err := a.Auth().VerifyToken(tokenParts[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		accountID, ok := claims["account_id"].(string)
		if !ok {
			c.JSON(401, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set("accountID", accountID)
		c.Next()
	}
}

// requireOwnAccount rejects requests whose :id does not match the
// authenticated account. Returns the id when allowed.
func requireOwnAccount(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if id != c.GetString("accountID") {
		c.JSON(403, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return id, true
}
