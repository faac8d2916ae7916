package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Debug        bool          `json:"debug"`
	Version      string        `json:"version"`

	// Base URL used to build public artifact links
	AppURL string `json:"app_url"`

	// Application paths
	LogDir  string `json:"log_dir"`
	TempDir string `json:"temp_dir"`

	CORS      CORSConfig      `json:"cors"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Database  DatabaseConfig  `json:"database"`
	Proxy     ProxyConfig     `json:"proxy"`
	Retry     RetryConfig     `json:"retry"`
	Video     VideoConfig     `json:"video"`
	Spaces    SpacesConfig    `json:"spaces"`

	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path               string        `json:"path"`
	MaxConnections     int           `json:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
}

// ProxyConfig holds the raw proxy values. Resolution into an endpoint lives
// in the proxy package.
type ProxyConfig struct {
	Host      string `json:"host"`
	Port      string `json:"port"`
	Username  string `json:"-"`
	Password  string `json:"-"`
	UserAgent string `json:"user_agent"`
}

type RetryConfig struct {
	MaxRetries int           `json:"max_retries"`
	Delay      time.Duration `json:"delay"`
}

type VideoConfig struct {
	YtdlpPath       string        `json:"ytdlp_path"`
	ArtifactTTL     time.Duration `json:"artifact_ttl"`
	Workers         int           `json:"workers"`
	QueueSize       int           `json:"queue_size"`
	ProcessTimeout  time.Duration `json:"process_timeout"`
	PlaylistBackend string        `json:"playlist_backend"`
}

type SpacesConfig struct {
	Enabled   bool   `json:"enabled"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
}

type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	BurstSize         int  `json:"burst_size"`
}

const (
	PlaylistBackendYtdlp   = "ytdlp"
	PlaylistBackendLibrary = "library"
)

// Load reads configuration from an optional .env file and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to read .env file")
	}

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "3000"),
		ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		Debug:        getEnvAsBool("DEBUG", false),
		Version:      getEnv("VERSION", "1.0.0"),

		AppURL: getEnv("APP_URL", "http://localhost:3000"),

		LogDir:  getEnv("LOG_DIR", "./logs"),
		TempDir: getEnv("TEMP_DIR", "./temp"),

		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Minute),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		CORS: CORSConfig{
			Enabled:        getEnvAsBool("CORS_ENABLED", true),
			AllowedOrigins: getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsStringSlice(
				"CORS_ALLOWED_METHODS",
				[]string{"GET", "OPTIONS"},
			),
			AllowedHeaders:   getEnvAsStringSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type"}),
			ExposedHeaders:   getEnvAsStringSlice("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 86400),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
		},

		Database: DatabaseConfig{
			Path:               getEnv("DB_PATH", "./data/yt-audio.db"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		Proxy: ProxyConfig{
			Host:      getEnv("PROXY_HOST", ""),
			Port:      getEnv("PROXY_PORT", ""),
			Username:  getEnv("PROXY_USERNAME", ""),
			Password:  getEnv("PROXY_PASSWORD", ""),
			UserAgent: getEnv("PROXY_USER_AGENT", ""),
		},

		Retry: RetryConfig{
			MaxRetries: getEnvAsInt("RETRY_MAX_RETRIES", 3),
			Delay:      getEnvAsDuration("RETRY_DELAY", 10*time.Second),
		},

		Video: VideoConfig{
			YtdlpPath:       getEnv("YTDLP_PATH", "yt-dlp"),
			ArtifactTTL:     getEnvAsDuration("ARTIFACT_TTL", time.Minute),
			Workers:         getEnvAsInt("EXTRACTION_WORKERS", 4),
			QueueSize:       getEnvAsInt("EXTRACTION_QUEUE_SIZE", 100),
			ProcessTimeout:  getEnvAsDuration("EXTRACTION_TIMEOUT", 0),
			PlaylistBackend: getEnv("PLAYLIST_BACKEND", PlaylistBackendYtdlp),
		},

		Spaces: SpacesConfig{
			Enabled:   getEnvAsBool("SPACES_ENABLED", false),
			AccessKey: getEnv("SPACES_KEY", ""),
			SecretKey: getEnv("SPACES_SECRET", ""),
			Region:    getEnv("SPACES_REGION", "us-east-1"),
			Endpoint:  getEnv("SPACES_ENDPOINT", ""),
			Bucket:    getEnv("SPACES_BUCKET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validatePaths(c); err != nil {
		return err
	}

	if err := validateTimeouts(c); err != nil {
		return err
	}

	if err := validateServices(c); err != nil {
		return err
	}

	return nil
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{c.TempDir, "temp directory"},
		{filepath.Dir(c.Database.Path), "database directory"},
	}

	for _, p := range paths {
		if p.path == "" {
			return errors.Errorf("%s is required", p.name)
		}
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", p.name)
		}
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	if c.Video.ArtifactTTL <= 0 {
		return errors.New("artifact ttl must be positive")
	}
	if c.Retry.Delay < 0 {
		return errors.New("retry delay must not be negative")
	}
	if c.Video.ProcessTimeout < 0 {
		return errors.New("extraction timeout must not be negative")
	}
	return nil
}

func validateServices(c *Config) error {
	if c.ServerPort == "" {
		return errors.New("server port is required")
	}
	if c.AppURL == "" {
		return errors.New("app url is required")
	}
	if c.Retry.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	if c.Video.Workers <= 0 {
		return errors.New("extraction workers must be positive")
	}
	if c.Video.QueueSize <= 0 {
		return errors.New("extraction queue size must be positive")
	}

	switch c.Video.PlaylistBackend {
	case PlaylistBackendYtdlp, PlaylistBackendLibrary:
	default:
		return errors.Errorf("unknown playlist backend %q", c.Video.PlaylistBackend)
	}

	if c.Spaces.Enabled && (c.Spaces.Bucket == "" || c.Spaces.Endpoint == "") {
		return errors.New("spaces bucket and endpoint are required when spaces is enabled")
	}
	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		warnInvalid(key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		warnInvalid(key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		warnInvalid(key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}

func warnInvalid(key, value string, defaultValue interface{}) {
	logrus.WithFields(logrus.Fields{
		"key":          key,
		"value":        value,
		"defaultValue": defaultValue,
	}).Warn("Invalid value, using default")
}
