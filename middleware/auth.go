package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bekicom/sora-padval-b/utils"
)

// AuthMiddleware validates the bearer token (or cookie) and requires one of
// the given roles. With no roles listed, any authenticated user passes.
func AuthMiddleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("token")
		if err != nil {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": "Authorization token not provided"})
				c.Abort()
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": "Invalid Authorization header format"})
				c.Abort()
				return
			}
			token = parts[1]
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": "Invalid authorization token"})
			c.Abort()
			return
		}

		if len(roles) > 0 {
			allowed := false
			for _, r := range roles {
				if claims.Role == r {
					allowed = true
					break
				}
			}
			if !allowed {
				c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": "Role not permitted for this resource"})
				c.Abort()
				return
			}
		}

		c.Set("userID", claims.ID)
		c.Set("role", claims.Role)
		c.Set("firstName", claims.FirstName)
		c.Next()
	}
}
