package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cryptofund/cryptofund/internal/logger"
	"github.com/cryptofund/cryptofund/internal/metrics"
	"github.com/cryptofund/cryptofund/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロファイル
	ProfileService ProfileServiceInterface

	// トークンマーケットプレイス
	TokenService TokenServiceInterface

	// マーケットニュース
	NewsService NewsServiceInterface

	// 観測
	MetricsGatherer prometheus.Gatherer
	ErrorRing       *logger.ErrorRing
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (Session → RateLimit → CSRF)
//
// 認証ルート（/auth/*）とトークン閲覧・ニュースは認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	tokenHandler := NewTokenHandler(deps.TokenService, deps.ProfileService)
	newsHandler := NewNewsHandler(deps.NewsService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// Identityプロバイダー連携
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// CSRFトークン発行
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.AuthConfig.CookieSecure))

	// トークン閲覧・ニュースは未ログインでも利用できる
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/tokens", tokenHandler.ListTokens)
		r.Get("/api/tokens/{id}", tokenHandler.GetToken)
		r.Get("/api/market/trending", tokenHandler.Trending)
		r.Get("/api/news", newsHandler.ListNews)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware())

		// プロファイル管理
		r.Get("/api/profile", profileHandler.GetProfile)
		r.Put("/api/profile", profileHandler.UpdateProfile)

		// トークン上場・更新・購入（取引系レート制限を追加）
		r.With(deps.RateLimiter.TradeMiddleware()).Post("/api/tokens", tokenHandler.CreateToken)
		r.Patch("/api/tokens/{id}", tokenHandler.UpdateToken)
		r.With(deps.RateLimiter.TradeMiddleware()).Post("/api/tokens/{id}/purchase", tokenHandler.Purchase)

		// 保有・取引履歴
		r.Get("/api/holdings", tokenHandler.ListHoldings)
		r.Get("/api/transactions", tokenHandler.ListTransactions)

		// デバッグ: 直近エラーログ
		if deps.ErrorRing != nil {
			debugHandler := NewDebugHandler(deps.ErrorRing)
			r.Get("/api/debug/errors", debugHandler.RecentErrors)
		}
	})

	return r
}
