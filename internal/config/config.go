package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identityプロバイダー（Privy）
	PrivyAppID     string
	PrivyAppSecret string
	PrivyAPIURL    string // テスト用にオーバーライド可能

	// デモ認証（Privyなしのフォールバック経路）
	DemoMode bool

	// Session
	SessionSecret string
	SessionMaxAge int

	// 不整合ガード
	GuardLogoutDelay time.Duration

	// マーケットニュース
	NewsFeedURLs      []string
	NewsFetchTimeout  time.Duration
	NewsFetchMaxSize  int64
	NewsFetchInterval time.Duration
	NewsAPIInterval   time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitTrade   int

	// Session cleanup
	SessionRetentionDays int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// DEMO_MODE=true の場合、Privy関連の環境変数は必須ではなくなる。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DemoMode = getEnvBool("DEMO_MODE", false)

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.PrivyAppID = os.Getenv("PRIVY_APP_ID")
	cfg.PrivyAppSecret = os.Getenv("PRIVY_APP_SECRET")
	if !cfg.DemoMode {
		if cfg.PrivyAppID == "" {
			missing = append(missing, "PRIVY_APP_ID")
		}
		if cfg.PrivyAppSecret == "" {
			missing = append(missing, "PRIVY_APP_SECRET")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.PrivyAPIURL = getEnvString("PRIVY_API_URL", "")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.GuardLogoutDelay = getEnvDuration("GUARD_LOGOUT_DELAY", 1*time.Second)
	cfg.NewsFeedURLs = getEnvList("NEWS_FEED_URLS")
	cfg.NewsFetchTimeout = getEnvDuration("NEWS_FETCH_TIMEOUT", 10*time.Second)
	cfg.NewsFetchMaxSize = getEnvInt64("NEWS_FETCH_MAX_SIZE", 5242880)
	cfg.NewsFetchInterval = getEnvDuration("NEWS_FETCH_INTERVAL", 15*time.Minute)
	cfg.NewsAPIInterval = getEnvDuration("NEWS_API_INTERVAL", 5*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitTrade = getEnvInt("RATE_LIMIT_TRADE", 10)
	cfg.SessionRetentionDays = getEnvInt("SESSION_RETENTION_DAYS", 7)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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

// getEnvList はカンマ区切りの環境変数をスライスとして読み込む。
// 未設定の場合は空スライスを返す。
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
