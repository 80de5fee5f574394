package handlers

import (
	"net/http"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/IvanYuichiC/etab-flow-sign/internal/services"
	"github.com/IvanYuichiC/etab-flow-sign/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthHandler struct {
	sessions *services.SessionStore
	db       *gorm.DB
	logger   *zap.Logger
}

func NewAuthHandler(sessions *services.SessionStore, db *gorm.DB, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		db:       db,
		logger:   logger.With(zap.String("handler", "auth")),
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	var user models.User
	if err := h.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		h.logger.Warn("Login failed, unknown user",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.ActiveStatus || !utils.VerifyPassword(user.PasswordHash, req.Password) {
		h.logger.Warn("Login failed, bad credentials",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token := h.sessions.CreateSession(user.ID, c.ClientIP(), c.Request.UserAgent())
	c.SetCookie("session_token", token, int(h.sessions.Timeout().Seconds()), "/", "", false, true)

	h.db.Model(&user).Update("last_login", time.Now())

	h.logger.Info("User logged in", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"full_name":  user.FullName,
			"position":   user.Position,
			"department": user.Department,
			"role":       user.Role,
		},
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie("session_token"); err == nil {
		h.sessions.DeleteSession(token)
	}
	c.SetCookie("session_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
