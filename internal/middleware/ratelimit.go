package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレートリミッターの設定。
type RateLimiterConfig struct {
	// GeneralRate は一般APIエンドポイントのレート（リクエスト/秒）
	GeneralRate rate.Limit
	// GeneralBurst は一般APIエンドポイントのバースト許容量
	GeneralBurst int
	// TradeRate はトークン作成・購入エンドポイントのレート（リクエスト/秒）
	TradeRate rate.Limit
	// TradeBurst はトークン作成・購入エンドポイントのバースト許容量
	TradeBurst int
	// CleanupInterval は未使用リミッターの掃除間隔
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig はデフォルトのレートリミッター設定を返す。
// 一般API: 120リクエスト/分、取引系: 10リクエスト/分。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		TradeRate:       rate.Limit(10.0 / 60.0),
		TradeBurst:      10,
		CleanupInterval: 5 * time.Minute,
	}
}

// limiterEntry はプロファイルごとのリミッターと最終アクセス時刻を保持する。
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter はプロファイル単位のトークンバケット方式レートリミッター。
// 一般APIと取引系（トークン作成・購入）で別々の制限を適用する。
type RateLimiter struct {
	config RateLimiterConfig

	mu            sync.Mutex
	generalLimits map[string]*limiterEntry
	tradeLimits   map[string]*limiterEntry

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter はレートリミッターを生成し、バックグラウンドの
// 掃除ループを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:        config,
		generalLimits: make(map[string]*limiterEntry),
		tradeLimits:   make(map[string]*limiterEntry),
		stopCleanup:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop は掃除ループを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// cleanupLoop は一定間隔で長時間アクセスのないリミッターを破棄する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	threshold := time.Now().Add(-rl.config.CleanupInterval)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.generalLimits {
		if entry.lastSeen.Before(threshold) {
			delete(rl.generalLimits, key)
		}
	}
	for key, entry := range rl.tradeLimits {
		if entry.lastSeen.Before(threshold) {
			delete(rl.tradeLimits, key)
		}
	}
}

// getLimiter は指定キーのリミッターを取得する。未登録なら生成する。
func (rl *RateLimiter) getLimiter(limits map[string]*limiterEntry, key string, r rate.Limit, burst int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := limits[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(r, burst)}
		limits[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// limitKey はレート制限のキーを決定する。
// 認証済みならプロファイルID、未認証ならリモートアドレス。
func limitKey(r *http.Request) string {
	if profileID, err := ProfileIDFromContext(r.Context()); err == nil {
		return profileID
	}
	return r.RemoteAddr
}

// GeneralMiddleware は一般APIエンドポイント用のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limitKey(r)
			limiter := rl.getLimiter(rl.generalLimits, key, rl.config.GeneralRate, rl.config.GeneralBurst)
			if !limiter.Allow() {
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("path", r.URL.Path),
					slog.String("class", "general"),
				)
				writeRateLimitResponse(w, rl.config.GeneralRate)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TradeMiddleware はトークン作成・購入エンドポイント用の
// より厳しいレート制限ミドルウェアを返す。
func (rl *RateLimiter) TradeMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limitKey(r)
			limiter := rl.getLimiter(rl.tradeLimits, key, rl.config.TradeRate, rl.config.TradeBurst)
			if !limiter.Allow() {
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("path", r.URL.Path),
					slog.String("class", "trade"),
				)
				writeRateLimitResponse(w, rl.config.TradeRate)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeRateLimitResponse は429レスポンスをRetry-Afterヘッダー付きで書き込む。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfter := 1
	if r > 0 {
		retryAfter = int(1.0/float64(r)) + 1
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
}
