package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"stemforge/internal/config"
	"stemforge/internal/identity"
	"stemforge/internal/models"
	"stemforge/internal/signing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var audioMimeTypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
	"audio/aac":   true,
	"audio/flac":  true,
	"audio/ogg":   true,
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

var errFileTooLarge = errors.New("file exceeds plan limit")

type UploadHandler struct {
	Config   *config.Config
	Signer   *signing.Signer
	Provider identity.Provider
	DB       *gorm.DB
}

func NewUploadHandler(cfg *config.Config, signer *signing.Signer, provider identity.Provider, db *gorm.DB) *UploadHandler {
	return &UploadHandler{Config: cfg, Signer: signer, Provider: provider, DB: db}
}

// Upload accepts one multipart "audio" file, enforces the caller's effective
// limits, stores the file and answers with a signed download URL.
func (h *UploadHandler) Upload(c *gin.Context) {
	auth, ok := GetAuth(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
		return
	}

	limits := auth.Limits
	currentCount := auth.Profile.MonthlyRenderCount

	// Quota is checked before a single body byte is consumed.
	if !limits.HasQuotaRemaining(currentCount) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Monthly render limit reached for your current plan. Upgrade to continue rendering.",
		})
		return
	}

	// Transport-level cap so an oversized upload is aborted, never buffered.
	// The slack covers multipart framing around the file bytes.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limits.MaxUploadBytes+1024)

	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expecting multipart upload"})
		return
	}

	part, err := nextAudioPart(mr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file provided"})
		return
	}
	defer part.Close()

	mimeType := declaredContentType(part)
	if !audioMimeTypes[mimeType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported audio format"})
		return
	}

	originalName := part.FileName()
	storedName := storedFileName(originalName)
	path := filepath.Join(h.Config.UploadDir, storedName)

	written, err := saveStream(part, path, limits.MaxUploadBytes)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.Is(err, errFileTooLarge) || errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("File is too large for your current plan. Limit: %dMB", limits.MaxUploadBytes/(1024*1024)),
			})
			return
		}
		log.Printf("Failed to persist upload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Upload failed"})
		return
	}

	ttl := limits.SignedURLTTLSeconds
	if ttl <= 0 {
		ttl = h.Config.SignedURLTTLSeconds
	}
	audioURL, expiresAt := h.Signer.Issue(requestBaseURL(c), storedName, ttl)

	// Best-effort usage bookkeeping: the file is already stored, so an
	// increment failure must not fail the request.
	nextCount := currentCount
	updated, err := h.Provider.IncrementRenderCount(c.Request.Context(), auth.User.ID, currentCount)
	if err != nil {
		log.Printf("Failed to increment render count for %s: %v", auth.User.ID, err)
	} else if updated != nil {
		nextCount = updated.MonthlyRenderCount
	}

	record := models.Upload{
		StoredName:   storedName,
		OriginalName: originalName,
		OwnerID:      auth.User.ID,
		Plan:         auth.Plan.Key,
		MimeType:     mimeType,
		Size:         written,
		ExpiresAt:    expiresAt,
	}
	if err := h.DB.Create(&record).Error; err != nil {
		log.Printf("Failed to record upload %s: %v", storedName, err)
	}

	payload := planLimitsPayload(auth.Plan, limits)
	payload["monthlyRenderCount"] = nextCount

	c.JSON(http.StatusCreated, gin.H{
		"audioUrl":     audioURL,
		"expiresAt":    expiresAt,
		"originalName": originalName,
		"size":         written,
		"mimeType":     mimeType,
		"plan":         auth.Plan.Key,
		"planLimits":   payload,
	})
}

// nextAudioPart skips form fields until the "audio" file part appears.
func nextAudioPart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "audio" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func declaredContentType(part *multipart.Part) string {
	mimeType := part.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// storedFileName combines the upload timestamp, a short random segment and
// the sanitized original name. The random segment disambiguates two uploads
// of the same name landing in the same millisecond.
func storedFileName(originalName string) string {
	safe := sanitizeFileName(originalName)
	rand := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), rand, safe)
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	if safe == "" || safe == "." || safe == ".." {
		safe = "audio"
	}
	return safe
}

// saveStream copies the part to path, enforcing maxBytes mid-stream. The
// partial file is removed on any failure.
func saveStream(part *multipart.Part, path string, maxBytes int64) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > maxBytes {
				os.Remove(path)
				return written, errFileTooLarge
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				os.Remove(path)
				return written, err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			os.Remove(path)
			return written, readErr
		}
	}
	return written, nil
}

func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
