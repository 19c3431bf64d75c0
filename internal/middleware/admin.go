package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	roleAdmin = "admin"
)

// AdminRequired ensures the caller has the admin role. In AUTH_MODE=none
// every caller is treated as admin.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := GetCurrentUserID(c); !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if c.GetString("user_role") != roleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
