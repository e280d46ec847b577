package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseAnonKey        string
	SigningSecret          string
	SignedURLTTLSeconds    int64
	UploadDir              string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "5000"),
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseAnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
		SignedURLTTLSeconds:    getEnvInt64("FILE_SIGNED_URL_TTL_SECONDS", 1800),
		UploadDir:              getEnv("UPLOAD_DIR", "./uploads"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "./stemforge.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "stemforge"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// The signing secret falls back through the same chain the hosted
	// deployment uses. Changing the secret invalidates every previously
	// issued download URL.
	cfg.SigningSecret = getEnv("FILE_SIGNING_SECRET", "")
	if cfg.SigningSecret == "" {
		cfg.SigningSecret = getEnv("SUPABASE_FILE_SIGNING_SECRET", "")
	}
	if cfg.SigningSecret == "" {
		cfg.SigningSecret = cfg.SupabaseServiceRoleKey
	}
	if cfg.SigningSecret == "" {
		cfg.SigningSecret = "local-secret"
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
		log.Println("Warning: Supabase credentials are not fully configured. Authentication and plan enforcement will not work as expected.")
	}

	return cfg
}

// HasIdentityProvider reports whether the frontend can talk to the identity
// provider directly (URL + anon key both present).
func (c *Config) HasIdentityProvider() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
