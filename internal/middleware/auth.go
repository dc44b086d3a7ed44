package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skillquest/api/internal/config"
	"skillquest/api/internal/security"
	"skillquest/api/internal/service"
)

const (
	// CurrentUserKey holds the models.User resolved from the bearer token.
	CurrentUserKey = "current_user"
	// ClaimsKey holds the parsed security.SessionClaims.
	ClaimsKey = "session_claims"
)

// Auth verifies the bearer token and loads the caller's user record.
// Gated handlers never run on a missing, malformed or expired token.
func Auth(cfg *config.AppConfig, auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization token required"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseSessionToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		user, err := auth.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(ClaimsKey, *claims)
		c.Set(CurrentUserKey, user)

		c.Next()
	}
}
