package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		expected    bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("env_"+tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.expected, cfg.IsProduction())
		})
	}
}

func TestConfig_Validate_Production(t *testing.T) {
	tests := []struct {
		name          string
		sessionSecret string
		errorContains string
	}{
		{"valid_secret", "this-is-a-very-secure-secret-with-32-plus-characters", ""},
		{"empty_secret", "", "SESSION_SECRET must be set"},
		{"placeholder_secret", "change-this-in-production", "SESSION_SECRET must be set"},
		{"short_secret", "short", "at least 32 characters"},
		{"exactly_32_chars", "12345678901234567890123456789012", ""},
		{"31_chars", "1234567890123456789012345678901", "at least 32 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: "production", SessionSecret: tt.sessionSecret, FormPassword: "pw"}

			err := cfg.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestConfig_Validate_DevelopmentDefaults(t *testing.T) {
	for _, env := range []string{"development", "staging"} {
		t.Run(env, func(t *testing.T) {
			cfg := &Config{Environment: env}
			require.NoError(t, cfg.Validate())
			assert.Equal(t, devSessionSecret, cfg.SessionSecret)
			assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
		})
	}
}

func TestConfig_Validate_MissingAdminSecretStillStarts(t *testing.T) {
	cfg := &Config{Environment: "development"}
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.HasAdminSecret())

	cfg.FormPasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
	assert.True(t, cfg.HasAdminSecret())
}

func TestConfig_Validate_SupabasePair(t *testing.T) {
	cfg := &Config{SupabaseURL: "https://x.supabase.co"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL and SUPABASE_KEY")
}

func TestConfig_StorageBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"nothing_configured", Config{}, BackendMemory},
		{"database_url", Config{DatabaseURL: "postgres://localhost/cards"}, BackendPostgres},
		{"supabase", Config{SupabaseURL: "https://x.supabase.co", SupabaseKey: "k"}, BackendSupabase},
		{"supabase_wins_over_database", Config{SupabaseURL: "https://x.supabase.co", SupabaseKey: "k", DatabaseURL: "postgres://localhost/cards"}, BackendSupabase},
		{"supabase_without_key", Config{SupabaseURL: "https://x.supabase.co"}, BackendMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.StorageBackend())
		})
	}
}

func TestConfig_Origins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.test ,, http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("FORM_PASSWORD", "secret")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co/")
	t.Setenv("SUPABASE_KEY", "anon")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("LOGIN_RATE_BURST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "secret", cfg.FormPassword)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://x.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, BackendSupabase, cfg.StorageBackend())
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 5, cfg.LoginRateBurst)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CARD_ADMIN_TEST_KEY", "custom")

	assert.Equal(t, "custom", getEnv("CARD_ADMIN_TEST_KEY", "default"))
	assert.Equal(t, "default", getEnv("CARD_ADMIN_TEST_KEY_UNSET", "default"))
}
