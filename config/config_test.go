package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes())

	timeout, err := cfg.OracleTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, timeout)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidex.toml")
	content := `
[server]
port = "9090"
allowed_origins = "http://localhost:3000, http://localhost:5173"

[gemini]
api_key = "file-key"
model = "gemini-2.0-flash"
timeout = "45s"

[store]
backend = "memory"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "file-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins())

	timeout, err := cfg.OracleTimeout()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, timeout)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("STORE_BACKEND", "memory")

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.Gemini.APIKey = "" },
			wantErr: "GEMINI_API_KEY",
		},
		{
			name: "vertex needs project",
			mutate: func(c *Config) {
				c.Gemini.Backend = "vertex"
				c.Gemini.Project = ""
			},
			wantErr: "GOOGLE_CLOUD_PROJECT",
		},
		{
			name:    "mongo needs uri",
			mutate:  func(c *Config) { c.Store.Backend = "mongo" },
			wantErr: "MONGODB_URI",
		},
		{
			name:    "gcs needs bucket",
			mutate:  func(c *Config) { c.Blob.Backend = "gcs" },
			wantErr: "GCS_BUCKET",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Gemini.Timeout = "soon" },
			wantErr: "invalid oracle timeout",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store.Backend = "postgres" },
			wantErr: "unknown store backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Gemini.APIKey = "k"
			cfg.Store.Backend = "memory"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
