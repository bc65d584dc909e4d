package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// リフレッシュトークンストアのバックエンド種別
const (
	RefreshStoreMemory   = "memory"
	RefreshStorePostgres = "postgres"
	RefreshStoreRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	// 空の場合はインメモリリポジトリで起動する。
	DatabaseURL string

	// Redis
	RedisURL string

	// Token
	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	TokenIssuer       string

	// Refresh Token
	RefreshStore         string
	RefreshTokenTTL      time.Duration
	RefreshRotate        bool
	RefreshSweepInterval time.Duration

	// Password
	BcryptCost int

	// Rate Limit
	RateLimitAuth    int // req/min/IP
	RateLimitGeneral int // req/min/user

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string
	// リバースプロキシ配下でX-Forwarded-Forを信頼する場合はtrue
	TrustProxy bool

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値の組み合わせが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.AccessTokenSecret = os.Getenv("ACCESS_TOKEN_SECRET")
	if cfg.AccessTokenSecret == "" {
		missing = append(missing, "ACCESS_TOKEN_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseURL = getEnvString("DATABASE_URL", "")
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.TokenIssuer = getEnvString("TOKEN_ISSUER", "authgate")
	cfg.RefreshStore = strings.ToLower(getEnvString("REFRESH_STORE", RefreshStoreMemory))
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.RefreshRotate = getEnvBool("REFRESH_ROTATE", true)
	cfg.RefreshSweepInterval = getEnvDuration("REFRESH_SWEEP_INTERVAL", 10*time.Minute)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "4000")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は値の組み合わせを検証する。
func (c *Config) validate() error {
	switch c.RefreshStore {
	case RefreshStoreMemory:
	case RefreshStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("REFRESH_STORE=postgres requires DATABASE_URL")
		}
	case RefreshStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REFRESH_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported REFRESH_STORE: %q", c.RefreshStore)
	}

	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	if c.RefreshSweepInterval <= 0 {
		return fmt.Errorf("REFRESH_SWEEP_INTERVAL must be positive")
	}
	return nil
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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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
