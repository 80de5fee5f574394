package middleware

import (
	"net/http"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/IvanYuichiC/etab-flow-sign/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthMiddleware struct {
	sessions *services.SessionStore
	db       *gorm.DB
}

func NewAuthMiddleware(sessions *services.SessionStore, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		db:       db,
	}
}

// RequireAuth resolves the session cookie into the acting user and puts the
// identity on the request context. Handlers never read ambient session
// state; they take the user id from here.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken, err := c.Cookie("session_token")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		userID, valid := am.sessions.IsValidSession(sessionToken)
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			return
		}

		var user models.User
		if err := am.db.First(&user, userID).Error; err != nil || !user.ActiveStatus {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account unavailable"})
			return
		}

		c.Set("userID", userID)
		c.Set("username", user.Username)
		c.Set("role", user.Role)
		c.Next()
	}
}
