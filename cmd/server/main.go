package main

import (
	"log"
	"os"

	"stemforge/internal/api"
	"stemforge/internal/config"
	"stemforge/internal/database"
	"stemforge/internal/identity"
	"stemforge/internal/signing"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	db := database.InitGorm(cfg)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	signer := signing.NewSigner([]byte(cfg.SigningSecret))
	provider := identity.NewClient(cfg)

	metaHandler := api.NewMetaHandler(cfg)
	uploadHandler := api.NewUploadHandler(cfg, signer, provider, db)
	downloadHandler := api.NewDownloadHandler(cfg, signer, db)
	adminHandler := api.NewAdminHandler(db)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", metaHandler.Health)
		apiGroup.GET("/plan-limits", metaHandler.PlanLimits)

		apiGroup.POST("/upload", api.AuthRequired(provider), uploadHandler.Upload)
		apiGroup.GET("/download/:fileName", downloadHandler.Download)

		adminGroup := apiGroup.Group("/admin", api.AuthRequired(provider), api.RequireRole("admin"))
		{
			adminGroup.GET("/uploads", adminHandler.ListUploads)
		}
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
