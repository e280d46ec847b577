package api

import (
	"net/http"

	"stemforge/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	DB *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

// ListUploads returns recent ledger rows. Route is gated to the admin role.
func (h *AdminHandler) ListUploads(c *gin.Context) {
	var uploads []models.Upload
	if err := h.DB.Order("created_at DESC").Limit(100).Find(&uploads).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Return empty array instead of null
	if uploads == nil {
		uploads = []models.Upload{}
	}

	c.JSON(http.StatusOK, uploads)
}
