package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droprelay/service/internal/storage"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test. getEnv treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGIN",
		"PUBLIC_DIR", "STAGING_DIR", "MAX_UPLOAD_BYTES", "REMOTE_TIMEOUT",
		"STORAGE_PROVIDER", "DROPBOX_ACCESS_TOKEN", "DROPBOX_CONTENT_URL",
		"STORAGE_ENDPOINT", "STORAGE_ACCESS_KEY", "STORAGE_SECRET_KEY",
		"STORAGE_BUCKET", "STORAGE_USE_SSL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DROPBOX_ACCESS_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "http://localhost:5500", cfg.AllowedOrigin)
	assert.Equal(t, "public", cfg.PublicDir)
	assert.Equal(t, "uploads", cfg.StagingDir)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.Zero(t, cfg.RemoteTimeout)
	assert.Equal(t, ProviderDropbox, cfg.StorageProvider)
	assert.Equal(t, "token", cfg.DropboxAccessToken)
	assert.Equal(t, storage.DefaultDropboxContentURL, cfg.DropboxContentURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://files.example.com")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("REMOTE_TIMEOUT", "45s")
	t.Setenv("STORAGE_PROVIDER", ProviderMinio)
	t.Setenv("STORAGE_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://files.example.com", cfg.AllowedOrigin)
	assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
	assert.Equal(t, 45*time.Second, cfg.RemoteTimeout)
	assert.True(t, cfg.StorageUseSSL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing dropbox token",
			env:     map[string]string{},
			wantErr: "DROPBOX_ACCESS_TOKEN is required",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"STORAGE_PROVIDER": "ftp"},
			wantErr: `unknown STORAGE_PROVIDER "ftp"`,
		},
		{
			name:    "bad upload limit",
			env:     map[string]string{"STORAGE_PROVIDER": ProviderMemory, "MAX_UPLOAD_BYTES": "ten"},
			wantErr: "MAX_UPLOAD_BYTES",
		},
		{
			name:    "negative upload limit",
			env:     map[string]string{"STORAGE_PROVIDER": ProviderMemory, "MAX_UPLOAD_BYTES": "-1"},
			wantErr: "MAX_UPLOAD_BYTES",
		},
		{
			name:    "bad timeout",
			env:     map[string]string{"STORAGE_PROVIDER": ProviderMemory, "REMOTE_TIMEOUT": "soon"},
			wantErr: "REMOTE_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
