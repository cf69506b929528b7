package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	RiotAPIKey     string
	RiotRegion     string
	RiotBaseURL    string
	DDragonBaseURL string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDb       string
	PostgresSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	NATSUrl      string
	NATSClientID string

	RateLimitRedisPrefix string
	RateLimitShortTokens int
	RateLimitShortWindow time.Duration
	RateLimitLongTokens  int
	RateLimitLongWindow  time.Duration

	SyncEnabled        bool
	SyncInterval       time.Duration
	SyncRefreshCadence int
	SyncStartupDelay   time.Duration
	SyncPageSize       int
	SyncMaxPages       int

	AppPort  string
	AppEnv   string
	LogLevel string

	CacheEnabled    bool
	DatabaseEnabled bool
	EnableProfiling bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		RiotAPIKey:     os.Getenv("RIOT_API_KEY"),
		RiotRegion:     envOr("RIOT_REGION", "BR1"),
		RiotBaseURL:    os.Getenv("RIOT_BASE_URL"),
		DDragonBaseURL: envOr("DDRAGON_BASE_URL", "https://ddragon.leagueoflegends.com"),

		PostgresHost:     envOr("POSTGRES_HOST", "localhost"),
		PostgresPort:     envOr("POSTGRES_PORT", "5432"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDb:       os.Getenv("POSTGRES_DB"),
		PostgresSSLMode:  envOr("POSTGRES_SSL_MODE", "disable"),

		RedisHost:     envOr("REDIS_HOST", "localhost"),
		RedisPort:     envOr("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		NATSUrl:      envOr("NATS_URL", "nats://localhost:4222"),
		NATSClientID: envOr("NATS_CLIENT_ID", "riftsync"),

		RateLimitRedisPrefix: envOr("RATE_LIMIT_REDIS_PREFIX", "riftsync:ratelimit"),
		RateLimitShortTokens: envInt("RATE_LIMIT_SHORT_REQUESTS", 20),
		RateLimitShortWindow: envDuration("RATE_LIMIT_SHORT_WINDOW", time.Second),
		RateLimitLongTokens:  envInt("RATE_LIMIT_LONG_REQUESTS", 100),
		RateLimitLongWindow:  envDuration("RATE_LIMIT_LONG_WINDOW", 2*time.Minute),

		SyncEnabled:        envBool("SYNC_ENABLED", true),
		SyncInterval:       envDuration("SYNC_INTERVAL", 10*time.Minute),
		SyncRefreshCadence: envInt("SYNC_REFRESH_CADENCE", 6),
		SyncStartupDelay:   envDuration("SYNC_STARTUP_DELAY", 15*time.Second),
		SyncPageSize:       envInt("SYNC_PAGE_SIZE", 69),
		SyncMaxPages:       envInt("SYNC_MAX_PAGES", 10),

		AppPort:  envOr("APP_PORT", "8000"),
		AppEnv:   envOr("APP_ENV", "development"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		CacheEnabled:    envBool("CACHE_ENABLED", true),
		DatabaseEnabled: envBool("DATABASE_ENABLED", true),
		EnableProfiling: envBool("ENABLE_PROFILING", false),
	}

	if cfg.RiotBaseURL == "" {
		cfg.RiotBaseURL = fmt.Sprintf("https://%s.api.riotgames.com", strings.ToLower(cfg.RiotRegion))
	}

	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}
	if cfg.DatabaseEnabled && (cfg.PostgresUser == "" || cfg.PostgresDb == "") {
		return nil, fmt.Errorf("POSTGRES_USER and POSTGRES_DB are required when the database is enabled")
	}
	if cfg.SyncRefreshCadence < 1 {
		return nil, fmt.Errorf("SYNC_REFRESH_CADENCE must be >= 1, got %d", cfg.SyncRefreshCadence)
	}
	if cfg.SyncPageSize < 1 || cfg.SyncPageSize > 100 {
		return nil, fmt.Errorf("SYNC_PAGE_SIZE must be between 1 and 100, got %d", cfg.SyncPageSize)
	}
	if cfg.RateLimitShortTokens < 1 || cfg.RateLimitLongTokens < 1 {
		return nil, fmt.Errorf("rate limit token counts must be >= 1")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
