package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full service configuration. Values come from defaults, then
// an optional TOML file, then environment variables.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Gemini  GeminiConfig  `toml:"gemini"`
	Store   StoreConfig   `toml:"store"`
	Blob    BlobConfig    `toml:"blob"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port           string `toml:"port"`
	AllowedOrigins string `toml:"allowed_origins"`
	MaxUploadMB    int64  `toml:"max_upload_mb"`
}

type GeminiConfig struct {
	APIKey          string `toml:"api_key"`
	Model           string `toml:"model"`
	TranscribeModel string `toml:"transcribe_model"`
	// Backend is "gemini" (API key) or "vertex" (project + location).
	Backend  string `toml:"backend"`
	Project  string `toml:"project"`
	Location string `toml:"location"`
	Timeout  string `toml:"timeout"`
	// RequestsPerMinute throttles oracle calls; 0 disables throttling.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

type StoreConfig struct {
	Backend          string `toml:"backend"`
	MongoURI         string `toml:"mongodb_uri"`
	MongoDatabase    string `toml:"mongodb_database"`
	FirestoreProject string `toml:"firestore_project"`
}

type BlobConfig struct {
	Backend string `toml:"backend"`
	Bucket  string `toml:"gcs_bucket"`
	Dir     string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			MaxUploadMB: 50,
		},
		Gemini: GeminiConfig{
			Model:             "gemini-2.5-flash",
			TranscribeModel:   "gemini-2.5-flash",
			Backend:           "gemini",
			Location:          "us-central1",
			Timeout:           "2m",
			RequestsPerMinute: 30,
		},
		Store: StoreConfig{
			Backend:       "mongo",
			MongoDatabase: "evidex",
		},
		Blob: BlobConfig{
			Backend: "local",
			Dir:     "uploads",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.AllowedOrigins, "ALLOWED_ORIGINS")
	setInt64(&c.Server.MaxUploadMB, "MAX_UPLOAD_MB")

	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Gemini.TranscribeModel, "GEMINI_TRANSCRIBE_MODEL")
	setString(&c.Gemini.Backend, "GEMINI_BACKEND")
	setString(&c.Gemini.Project, "GOOGLE_CLOUD_PROJECT")
	setString(&c.Gemini.Location, "GOOGLE_CLOUD_LOCATION")
	setString(&c.Gemini.Timeout, "ORACLE_TIMEOUT")
	if v, ok := os.LookupEnv("ORACLE_RPM"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Gemini.RequestsPerMinute = n
		}
	}

	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.MongoURI, "MONGODB_URI")
	setString(&c.Store.MongoDatabase, "MONGODB_DATABASE")
	setString(&c.Store.FirestoreProject, "FIRESTORE_PROJECT")
	if c.Store.FirestoreProject == "" {
		c.Store.FirestoreProject = c.Gemini.Project
	}

	setString(&c.Blob.Backend, "BLOB_BACKEND")
	setString(&c.Blob.Bucket, "GCS_BUCKET")
	setString(&c.Blob.Dir, "BLOB_DIR")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if _, err := c.OracleTimeout(); err != nil {
		return err
	}

	switch c.Gemini.Backend {
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY must be set for the gemini backend")
		}
	case "vertex":
		if c.Gemini.Project == "" || c.Gemini.Location == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION must be set for the vertex backend")
		}
	default:
		return fmt.Errorf("unknown gemini backend %q", c.Gemini.Backend)
	}

	switch c.Store.Backend {
	case "mongo":
		if c.Store.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI must be set for the mongo store")
		}
	case "firestore":
		if c.Store.FirestoreProject == "" {
			return fmt.Errorf("FIRESTORE_PROJECT must be set for the firestore store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Blob.Backend {
	case "gcs":
		if c.Blob.Bucket == "" {
			return fmt.Errorf("GCS_BUCKET must be set for the gcs blob store")
		}
	case "local":
		if c.Blob.Dir == "" {
			return fmt.Errorf("BLOB_DIR must be set for the local blob store")
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.Blob.Backend)
	}

	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// OracleTimeout returns the per-call oracle timeout.
func (c *Config) OracleTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Gemini.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid oracle timeout %q: %w", c.Gemini.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("oracle timeout must be positive, got %s", d)
	}
	return d, nil
}

// MaxUploadBytes returns the per-file upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// AllowedOrigins returns the configured CORS origins, trimmed.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			*dst = n
		}
	}
}
