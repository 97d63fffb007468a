package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// セッション状態の保存先
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend API
	APIBaseURL string
	APITimeout time.Duration

	// Client state
	SessionBackend     string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	StateRetentionDays int

	// Cookie
	ClientCookieMaxAge int
	CookieSecure       bool
	CookieDomain       string

	// Document links
	LinkCheckTimeout time.Duration

	// Rate Limit（1分あたりの回数）
	RateLimitGeneral int
	RateLimitLogin   int

	// Audit
	AMQPURL    string
	AuditQueue string

	// Server
	ServerPort string
	BaseURL    string

	// Logging
	LogLevel string
}

// LoadEnvFile はpathの.envファイルを読み込み、未設定の環境変数だけを設定する。
// ファイルが存在しない場合は何もしない。
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.SessionBackend = strings.ToLower(getEnvString("SESSION_BACKEND", BackendMemory))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.SessionBackend == BackendPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	switch cfg.SessionBackend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return nil, fmt.Errorf("invalid SESSION_BACKEND: %q (want memory, postgres or redis)", cfg.SessionBackend)
	}

	// Optional fields with defaults
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 15*time.Second)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.StateRetentionDays = getEnvInt("STATE_RETENTION_DAYS", 30)
	cfg.ClientCookieMaxAge = getEnvInt("CLIENT_COOKIE_MAX_AGE", 604800)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.LinkCheckTimeout = getEnvDuration("LINK_CHECK_TIMEOUT", 5*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.AMQPURL = os.Getenv("AMQP_URL")
	cfg.AuditQueue = getEnvString("AUDIT_QUEUE", "researchtracker.audit")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// StateRetention はクライアント状態を保持する期間を返す。
func (c *Config) StateRetention() time.Duration {
	return time.Duration(c.StateRetentionDays) * 24 * time.Hour
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
