package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	ServerPort  int
	Environment string
	LogLevel    string
	LogFormat   string // "console" or "json"

	DataDir              string // Directory holding users.json and sessions.json
	StoreBackend         string
	DatabasePath         string
	StoreTolerateCorrupt bool

	SessionSecret   string
	SessionTokenTTL time.Duration
	CORSOrigins     []string

	PistonURL       string
	ExecHTTPTimeout time.Duration
	JSTimeout       time.Duration
	RuntimeCacheTTL time.Duration

	BackupPath      string
	BackupSchedule  string // Standard cron expression; empty disables backups
	BackupRetention int

	PingMessage string
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreJSON)),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/notebooks.db"),
		SessionSecret:  os.Getenv("JWT_SECRET"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:8080")),
		PistonURL:      strings.TrimRight(getEnv("PISTON_URL", "https://emkc.org/api/v2/piston"), "/"),
		BackupPath:     getEnv("BACKUP_PATH", "./backups"),
		BackupSchedule: getEnv("BACKUP_SCHEDULE", ""),
		PingMessage:    getEnv("PING_MESSAGE", "ping"),
	}

	var err error
	if cfg.ServerPort, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.BackupRetention, err = getInt("BACKUP_RETENTION", 7); err != nil {
		return nil, err
	}
	if cfg.StoreTolerateCorrupt, err = getBool("STORE_TOLERATE_CORRUPT", false); err != nil {
		return nil, err
	}
	if cfg.SessionTokenTTL, err = getDuration("SESSION_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ExecHTTPTimeout, err = getDuration("EXEC_HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.JSTimeout, err = getDuration("JS_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.RuntimeCacheTTL, err = getDuration("RUNTIME_CACHE_TTL", 60*time.Second); err != nil {
		return nil, err
	}

	if cfg.StoreBackend != StoreJSON && cfg.StoreBackend != StoreSQLite {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SECRET_KEY")
	}
	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.SessionSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getDuration accepts Go duration strings ("2s", "1m30s") or a bare number of milliseconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
