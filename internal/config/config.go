// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the sync daemon's
// settings: server endpoint, local store path, queue retry policy, cache
// freshness, and logging.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the sync daemon.
type Config struct {
	// Server API
	ServerBaseURL string        // root of the goal API, e.g. "http://localhost:8080"
	AuthToken     string        // bearer credential for the principal
	UserID        string        // owning user for the local mirror
	HTTPTimeout   time.Duration // transport timeout for API calls

	// Local store
	DBPath string // SQLite path

	// Queue
	MaxRetries   int           // replay attempts before an operation is frozen
	SyncInterval time.Duration // periodic drain trigger
	KickRPS      float64       // opportunistic sync kicks per second (0 = unthrottled)
	KickBurst    int           // kick token bucket size

	// Cached fetch
	CacheMaxAge  time.Duration // default freshness horizon for cached reads
	WarmStatsURL string        // optional stats URL warmed on each sync tick

	// Logging / metrics
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	MetricsPort string // port for the /metrics listener; empty disables it

	// Dev server
	DevServer     bool   // run the in-memory goal API instead of a remote
	DevServerPort string // port the dev server listens on
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server API
		ServerBaseURL: getenv("SERVER_BASE_URL", "http://localhost:8080"),
		AuthToken:     getenv("AUTH_TOKEN", ""),
		UserID:        getenv("USER_ID", "demo"),
		HTTPTimeout:   getdur("HTTP_TIMEOUT", 15*time.Second),

		// Local store
		DBPath: getenv("DB_PATH", "goalsync.db"),

		// Queue
		MaxRetries:   getint("MAX_RETRIES", 3),
		SyncInterval: getdur("SYNC_INTERVAL", 30*time.Second),
		KickRPS:      getfloat("KICK_RPS", 1.0),
		KickBurst:    getint("KICK_BURST", 2),

		// Cached fetch
		CacheMaxAge:  getdur("CACHE_MAX_AGE", 5*time.Minute),
		WarmStatsURL: getenv("WARM_STATS_URL", ""),

		// Logging / metrics
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		MetricsPort: getenv("METRICS_PORT", "9091"),

		// Dev server
		DevServer:     getbool("DEV_SERVER", false),
		DevServerPort: getenv("DEV_SERVER_PORT", "8080"),
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.ServerBaseURL = strings.TrimRight(strings.TrimSpace(cfg.ServerBaseURL), "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.ServerBaseURL == "" {
		return cfg, errors.New("SERVER_BASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.UserID) == "" {
		return cfg, errors.New("USER_ID must not be empty")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.HTTPTimeout <= 0 {
		return cfg, errors.New("HTTP_TIMEOUT must be a positive duration")
	}
	if cfg.MaxRetries < 1 {
		return cfg, errors.New("MAX_RETRIES must be >= 1")
	}
	if cfg.SyncInterval <= 0 {
		return cfg, errors.New("SYNC_INTERVAL must be a positive duration")
	}
	if cfg.KickRPS < 0 {
		return cfg, errors.New("KICK_RPS must be >= 0")
	}
	if cfg.KickBurst < 1 {
		return cfg, errors.New("KICK_BURST must be >= 1")
	}
	if cfg.CacheMaxAge <= 0 {
		return cfg, errors.New("CACHE_MAX_AGE must be a positive duration")
	}
	if cfg.DevServer && strings.TrimSpace(cfg.DevServerPort) == "" {
		return cfg, errors.New("DEV_SERVER_PORT must not be empty when DEV_SERVER is set")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
