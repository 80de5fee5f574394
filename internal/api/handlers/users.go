package handlers

import (
	"net/http"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewUserHandler(db *gorm.DB, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		db:     db,
		logger: logger.With(zap.String("handler", "user")),
	}
}

// ListUsers is the pick list for building a signatory chain.
func (h *UserHandler) ListUsers(c *gin.Context) {
	var users []models.User
	if err := h.db.Where("active_status = ?", true).Order("full_name ASC").Find(&users).Error; err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	out := make([]gin.H, len(users))
	for i, u := range users {
		out[i] = gin.H{
			"id":         u.ID,
			"username":   u.Username,
			"full_name":  u.FullName,
			"position":   u.Position,
			"department": u.Department,
		}
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetUint("userID")

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"full_name":  user.FullName,
		"position":   user.Position,
		"department": user.Department,
		"role":       user.Role,
	})
}
