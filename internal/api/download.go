package api

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"stemforge/internal/config"
	"stemforge/internal/models"
	"stemforge/internal/signing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DownloadHandler struct {
	Config *config.Config
	Signer *signing.Signer
	DB     *gorm.DB
}

func NewDownloadHandler(cfg *config.Config, signer *signing.Signer, db *gorm.DB) *DownloadHandler {
	return &DownloadHandler{Config: cfg, Signer: signer, DB: db}
}

// Download verifies the signed token and streams the stored file. No auth:
// the signature is the credential.
func (h *DownloadHandler) Download(c *gin.Context) {
	fileName := c.Param("fileName")
	expires := c.Query("expires")
	token := c.Query("token")

	if !h.Signer.Verify(fileName, expires, token) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired download token"})
		return
	}

	// Issued names never contain separators; anything else is rejected
	// before touching the filesystem.
	if !safeFileName(fileName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
		return
	}

	path := filepath.Join(h.Config.UploadDir, fileName)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	c.Header("Content-Type", h.contentTypeFor(fileName))
	c.File(path)
}

// safeFileName rejects path separators and bare dot names. Dots inside a
// name are fine; traversal needs a separator to escape the upload root.
func safeFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

// contentTypeFor prefers the MIME type recorded at upload time, falling back
// to the file extension.
func (h *DownloadHandler) contentTypeFor(fileName string) string {
	var record models.Upload
	if err := h.DB.Where("stored_name = ?", fileName).First(&record).Error; err == nil && record.MimeType != "" {
		return record.MimeType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(fileName)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
