package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sitematch/backend/internal/config"
)

var configEnvKeys = []string{
	"SERVER_ADDR", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_REQUESTS",
	"RATE_LIMIT_WINDOW", "RATE_LIMIT_DISABLED", "SERVER_REQUEST_TIMEOUT",
	"CORPUS_PATH", "QUERY_LOG_BACKEND", "QUERY_LOG_PATH",
	"RECOMMEND_LIMIT", "RECOMMEND_COLLABORATIVE_LIMIT", "RECOMMEND_MAX_FEATURES",
	"RECOMMEND_COLLABORATIVE", "RECOMMEND_CACHE_ENABLED", "RECOMMEND_CACHE_SIZE",
	"ENRICH_OUTPUT_PATH", "ENRICH_CONCURRENCY", "ENRICH_MIN_DELAY",
	"ENRICH_REQUEST_TIMEOUT", "ENRICH_ENABLE_ROBOTS_CHECK", "ENRICH_USER_AGENT",
	"ENRICH_OVERWRITE",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 100, cfg.Server.RateLimitRequests)
	assert.Equal(t, 1*time.Minute, cfg.Server.RateLimitWindow)
	assert.False(t, cfg.Server.RateLimitDisabled)

	assert.Equal(t, "appic_clean.csv", cfg.Corpus.Path)
	assert.Equal(t, "file", cfg.QueryLog.Backend)
	assert.Equal(t, "requests_log.csv", cfg.QueryLog.Path)

	assert.Equal(t, 10, cfg.Recommend.Limit)
	assert.Equal(t, 5, cfg.Recommend.CollaborativeLimit)
	assert.Equal(t, 5000, cfg.Recommend.MaxFeatures)
	assert.True(t, cfg.Recommend.Collaborative)
	assert.False(t, cfg.Recommend.CacheEnabled)

	assert.Equal(t, 4, cfg.Enrich.Concurrency)
	assert.Equal(t, 1*time.Second, cfg.Enrich.MinDelay)
	assert.True(t, cfg.Enrich.EnableRobotsCheck)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	envVars := map[string]string{
		"SERVER_ADDR":             ":8080",
		"CORS_ALLOWED_ORIGINS":    "https://a.example.com, https://b.example.com",
		"RATE_LIMIT_WINDOW":       "30s",
		"QUERY_LOG_BACKEND":       "sqlite",
		"QUERY_LOG_PATH":          "/var/lib/sitematch/log.db",
		"RECOMMEND_LIMIT":         "20",
		"RECOMMEND_COLLABORATIVE": "false",
		"RECOMMEND_CACHE_ENABLED": "true",
		"ENRICH_CONCURRENCY":      "8",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg := config.Load()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Server.RateLimitWindow)
	assert.Equal(t, "sqlite", cfg.QueryLog.Backend)
	assert.Equal(t, "/var/lib/sitematch/log.db", cfg.QueryLog.Path)
	assert.Equal(t, 20, cfg.Recommend.Limit)
	assert.False(t, cfg.Recommend.Collaborative)
	assert.True(t, cfg.Recommend.CacheEnabled)
	assert.Equal(t, 8, cfg.Enrich.Concurrency)
}

func TestGetIntEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		expected     int
	}{
		{"Valid int", "42", 10, 42},
		{"Invalid int", "not_a_number", 10, 10},
		{"Negative int", "-5", 10, -5},
		{"Zero", "0", 10, 0},
		{"Unset", "", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			assert.Equal(t, tt.expected, config.GetIntEnv("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"True string", "true", false, true},
		{"False string", "false", true, false},
		{"1 (true)", "1", false, true},
		{"Invalid bool", "invalid", true, true},
		{"Unset", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			assert.Equal(t, tt.expected, config.GetBoolEnv("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetDurationEnv(t *testing.T) {
	t.Setenv("TEST_DURATION", "1h30m")
	assert.Equal(t, 90*time.Minute, config.GetDurationEnv("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "invalid")
	assert.Equal(t, 5*time.Second, config.GetDurationEnv("TEST_DURATION", 5*time.Second))
}

func TestGetListEnv(t *testing.T) {
	t.Setenv("TEST_LIST", " a ,, b ")
	assert.Equal(t, []string{"a", "b"}, config.GetListEnv("TEST_LIST", nil))

	t.Setenv("TEST_LIST", " , ")
	assert.Equal(t, []string{"x"}, config.GetListEnv("TEST_LIST", []string{"x"}))

	t.Setenv("TEST_LIST", "")
	assert.Equal(t, []string{"x"}, config.GetListEnv("TEST_LIST", []string{"x"}))
}
