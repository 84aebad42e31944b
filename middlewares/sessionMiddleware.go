package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
)

// SessionMiddleware rejects tokens that were revoked by logout. Runs after
// AuthMiddleware; when redis is unavailable the JWT check alone stands.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.GetTokenFromContext(c.Request.Context())
		if !ok || token == "" {
			c.Next()
			return
		}
		if config.GetRedisDB() == nil {
			c.Next()
			return
		}
		_, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
