package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends, chosen once at startup.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
)

const (
	defaultSessionTTL = 8 * time.Hour
	devSessionSecret  = "dev-secret-not-for-production"
)

// Config holds application configuration
type Config struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string
	LogFormat   string

	// Admin secret. Either the plaintext or a bcrypt hash may be set.
	FormPassword     string
	FormPasswordHash string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	DatabaseURL    string
	MigrateOnStart bool
	SupabaseURL    string
	SupabaseKey    string
	RabbitMQURL    string

	AllowedOrigins    string
	OpenAPIValidation bool
	LoginRateLimit    float64 // requests per second per client IP
	LoginRateBurst    int
}

// Load reads configuration from an optional .env file and the environment,
// then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		FormPassword:      os.Getenv("FORM_PASSWORD"),
		FormPasswordHash:  os.Getenv("FORM_PASSWORD_HASH"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		SessionTTL:        getDuration("SESSION_TTL", defaultSessionTTL),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		MigrateOnStart:    getBool("DB_MIGRATE", true),
		SupabaseURL:       strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:       os.Getenv("SUPABASE_KEY"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"),
		OpenAPIValidation: getBool("OPENAPI_VALIDATION", true),
		LoginRateLimit:    getFloat("LOGIN_RATE_LIMIT", 0.2),
		LoginRateBurst:    getInt("LOGIN_RATE_BURST", 5),
	}
	cfg.CookieSecure = getBool("COOKIE_SECURE", cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.SessionSecret == "" || c.SessionSecret == "change-this-in-production" {
			return fmt.Errorf("SESSION_SECRET must be set to a strong random value in production")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production (got %d)", len(c.SessionSecret))
		}
	} else if c.SessionSecret == "" {
		c.SessionSecret = devSessionSecret
		slog.Warn("using default SESSION_SECRET for development")
	}

	if (c.SupabaseURL == "") != (c.SupabaseKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY must be set together")
	}

	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}

	// Login stays disabled until a secret is configured; the server still starts.
	if !c.HasAdminSecret() {
		slog.Warn("FORM_PASSWORD is not set; login will fail with a configuration error")
	}
	return nil
}

// HasAdminSecret reports whether a plaintext or hashed admin secret is set.
func (c *Config) HasAdminSecret() bool {
	return c.FormPassword != "" || c.FormPasswordHash != ""
}

// StorageBackend picks the card store: Supabase when both its URL and key
// are present, else Postgres when DATABASE_URL is set, else memory.
func (c *Config) StorageBackend() string {
	switch {
	case c.SupabaseURL != "" && c.SupabaseKey != "":
		return BackendSupabase
	case c.DatabaseURL != "":
		return BackendPostgres
	default:
		return BackendMemory
	}
}

// Origins splits AllowedOrigins on commas, dropping blanks.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
