package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"stemforge/internal/config"
	"stemforge/internal/identity"
	"stemforge/internal/models"
	"stemforge/internal/signing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeProvider is an in-memory stand-in for the hosted identity provider.
type fakeProvider struct {
	users    map[string]*identity.User
	profiles map[string]*identity.Profile

	profileErr   error
	createErr    error
	incrementErr error

	createdCount  int
	incrementHits int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		users:    make(map[string]*identity.User),
		profiles: make(map[string]*identity.Profile),
	}
}

func (f *fakeProvider) GetUser(ctx context.Context, accessToken string) (*identity.User, error) {
	if u, ok := f.users[accessToken]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeProvider) GetProfile(ctx context.Context, userID string) (*identity.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if p, ok := f.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeProvider) CreateProfile(ctx context.Context, user *identity.User) (*identity.Profile, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := &identity.Profile{ID: user.ID, Email: user.Email, Plan: "free", Role: "user"}
	f.profiles[user.ID] = p
	f.createdCount++
	cp := *p
	return &cp, nil
}

func (f *fakeProvider) IncrementRenderCount(ctx context.Context, userID string, currentCount int64) (*identity.Profile, error) {
	f.incrementHits++
	if f.incrementErr != nil {
		return nil, f.incrementErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	p.MonthlyRenderCount = currentCount + 1
	cp := *p
	return &cp, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Upload{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// setupServer wires the full route table the way cmd/server does, against a
// throwaway upload dir and database.
func setupServer(t *testing.T, provider identity.Provider) (*gin.Engine, *config.Config, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Port:                "0",
		SigningSecret:       "test-secret",
		SignedURLTTLSeconds: 1800,
		UploadDir:           t.TempDir(),
	}
	db := setupTestDB(t)
	signer := signing.NewSigner([]byte(cfg.SigningSecret))

	metaHandler := NewMetaHandler(cfg)
	uploadHandler := NewUploadHandler(cfg, signer, provider, db)
	downloadHandler := NewDownloadHandler(cfg, signer, db)
	adminHandler := NewAdminHandler(db)

	r := gin.New()
	apiGroup := r.Group("/api")
	apiGroup.GET("/health", metaHandler.Health)
	apiGroup.GET("/plan-limits", metaHandler.PlanLimits)
	apiGroup.POST("/upload", AuthRequired(provider), uploadHandler.Upload)
	apiGroup.GET("/download/:fileName", downloadHandler.Download)
	adminGroup := apiGroup.Group("/admin", AuthRequired(provider), RequireRole("admin"))
	adminGroup.GET("/uploads", adminHandler.ListUploads)

	return r, cfg, db
}

// audioFormBody builds a multipart body with an explicit part Content-Type,
// which CreateFormFile cannot set.
func audioFormBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}
