package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the recommendation service
type Config struct {
	Server    ServerConfig
	Corpus    CorpusConfig
	QueryLog  QueryLogConfig
	Recommend RecommendConfig
	Enrich    EnrichConfig
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr               string
	LogLevel           string
	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	RateLimitDisabled  bool
	RequestTimeout     time.Duration
}

// CorpusConfig locates the site table
type CorpusConfig struct {
	Path string
}

// QueryLogConfig selects the query log backend
type QueryLogConfig struct {
	Backend string // "file" or "sqlite"
	Path    string
}

// RecommendConfig holds ranking parameters
type RecommendConfig struct {
	Limit              int
	CollaborativeLimit int
	MaxFeatures        int
	Collaborative      bool
	CacheEnabled       bool
	CacheSize          int
}

// EnrichConfig holds site page fetching configuration
type EnrichConfig struct {
	OutputPath        string
	Concurrency       int
	MinDelay          time.Duration
	RequestTimeout    time.Duration
	EnableRobotsCheck bool
	UserAgent         string
	Overwrite         bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               GetStringEnv("SERVER_ADDR", ":9090"),
			LogLevel:           GetStringEnv("LOG_LEVEL", "info"),
			CORSAllowedOrigins: GetListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRequests:  GetIntEnv("RATE_LIMIT_REQUESTS", 100),
			RateLimitWindow:    GetDurationEnv("RATE_LIMIT_WINDOW", 1*time.Minute),
			RateLimitDisabled:  GetBoolEnv("RATE_LIMIT_DISABLED", false),
			RequestTimeout:     GetDurationEnv("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Corpus: CorpusConfig{
			Path: GetStringEnv("CORPUS_PATH", "appic_clean.csv"),
		},
		QueryLog: QueryLogConfig{
			Backend: GetStringEnv("QUERY_LOG_BACKEND", "file"),
			Path:    GetStringEnv("QUERY_LOG_PATH", "requests_log.csv"),
		},
		Recommend: RecommendConfig{
			Limit:              GetIntEnv("RECOMMEND_LIMIT", 10),
			CollaborativeLimit: GetIntEnv("RECOMMEND_COLLABORATIVE_LIMIT", 5),
			MaxFeatures:        GetIntEnv("RECOMMEND_MAX_FEATURES", 5000),
			Collaborative:      GetBoolEnv("RECOMMEND_COLLABORATIVE", true),
			CacheEnabled:       GetBoolEnv("RECOMMEND_CACHE_ENABLED", false),
			CacheSize:          GetIntEnv("RECOMMEND_CACHE_SIZE", 16),
		},
		Enrich: EnrichConfig{
			OutputPath:        GetStringEnv("ENRICH_OUTPUT_PATH", "appic_enriched.csv"),
			Concurrency:       GetIntEnv("ENRICH_CONCURRENCY", 4),
			MinDelay:          GetDurationEnv("ENRICH_MIN_DELAY", 1*time.Second),
			RequestTimeout:    GetDurationEnv("ENRICH_REQUEST_TIMEOUT", 30*time.Second),
			EnableRobotsCheck: GetBoolEnv("ENRICH_ENABLE_ROBOTS_CHECK", true),
			UserAgent:         GetStringEnv("ENRICH_USER_AGENT", "SiteMatch-Enricher/1.0"),
			Overwrite:         GetBoolEnv("ENRICH_OVERWRITE", false),
		},
	}
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetListEnv splits a comma-separated value, dropping empty items.
func GetListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
