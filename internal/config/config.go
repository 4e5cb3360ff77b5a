// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/droprelay/service/internal/logger"
	"github.com/droprelay/service/internal/storage"
)

// Storage providers accepted in STORAGE_PROVIDER.
const (
	ProviderDropbox = "dropbox"
	ProviderMinio   = "minio"
	ProviderMemory  = "memory"
)

// DefaultMaxUploadBytes caps a single uploaded file at 10 MiB.
const DefaultMaxUploadBytes = 10 << 20

// Config holds all runtime configuration for the service. It is built once
// at startup and handed to the components that need it.
type Config struct {
	Port   string
	AppEnv string

	LogLevel  string
	LogFormat string // json or console

	AllowedOrigin  string // the single origin allowed to call the API cross-site
	PublicDir      string // static UI
	StagingDir     string // transient upload buffer
	MaxUploadBytes int64
	RemoteTimeout  time.Duration // 0 leaves remote calls unbounded

	StorageProvider string

	// Dropbox
	DropboxAccessToken string
	DropboxContentURL  string

	// Object storage (S3-compatible: MinIO locally, any S3 provider in production)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
}

// Load reads configuration from a .env file (if present) and environment
// variables, and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, reading from environment")
	}

	appEnv := getEnv("APP_ENV", "development")
	logFormat := "json"
	if appEnv == "development" {
		logFormat = "console"
	}

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", strconv.Itoa(DefaultMaxUploadBytes)), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer, got %q", os.Getenv("MAX_UPLOAD_BYTES"))
	}

	remoteTimeout, err := time.ParseDuration(getEnv("REMOTE_TIMEOUT", "0s"))
	if err != nil || remoteTimeout < 0 {
		return nil, fmt.Errorf("REMOTE_TIMEOUT must be a non-negative duration, got %q", os.Getenv("REMOTE_TIMEOUT"))
	}

	cfg := &Config{
		Port:   getEnv("PORT", "3000"),
		AppEnv: appEnv,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", logFormat),

		AllowedOrigin:  getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:5500"),
		PublicDir:      getEnv("PUBLIC_DIR", "public"),
		StagingDir:     getEnv("STAGING_DIR", "uploads"),
		MaxUploadBytes: maxUpload,
		RemoteTimeout:  remoteTimeout,

		StorageProvider: getEnv("STORAGE_PROVIDER", ProviderDropbox),

		DropboxAccessToken: os.Getenv("DROPBOX_ACCESS_TOKEN"),
		DropboxContentURL:  getEnv("DROPBOX_CONTENT_URL", storage.DefaultDropboxContentURL),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "uploads"),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) validate() error {
	switch c.StorageProvider {
	case ProviderDropbox:
		if c.DropboxAccessToken == "" {
			return errors.New("DROPBOX_ACCESS_TOKEN is required when STORAGE_PROVIDER=dropbox")
		}
	case ProviderMinio:
		if c.StorageBucket == "" {
			return errors.New("STORAGE_BUCKET is required when STORAGE_PROVIDER=minio")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", c.StorageProvider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
