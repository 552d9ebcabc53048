package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cryptofund/cryptofund/internal/auth"
	"github.com/cryptofund/cryptofund/internal/config"
	"github.com/cryptofund/cryptofund/internal/database"
	"github.com/cryptofund/cryptofund/internal/handler"
	"github.com/cryptofund/cryptofund/internal/identity"
	"github.com/cryptofund/cryptofund/internal/logger"
	"github.com/cryptofund/cryptofund/internal/metrics"
	"github.com/cryptofund/cryptofund/internal/middleware"
	"github.com/cryptofund/cryptofund/internal/news"
	"github.com/cryptofund/cryptofund/internal/profile"
	"github.com/cryptofund/cryptofund/internal/repository"
	"github.com/cryptofund/cryptofund/internal/security"
	"github.com/cryptofund/cryptofund/internal/token"
	"github.com/cryptofund/cryptofund/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("demo_mode", cfg.DemoMode),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newIdentityProvider は設定に応じてIdentityプロバイダーを選択する。
// DEMO_MODE=true の場合はPrivyを使わずデモ用プロバイダーを返す。
func newIdentityProvider(cfg *config.Config) identity.Provider {
	if cfg.DemoMode {
		slog.Info("デモ認証モードで起動します（Privy連携は無効）")
		return identity.NewDemoProvider()
	}
	return identity.NewPrivyProvider(identity.PrivyConfig{
		AppID:     cfg.PrivyAppID,
		AppSecret: cfg.PrivyAppSecret,
		APIURL:    cfg.PrivyAPIURL,
	}, &http.Client{Timeout: 10 * time.Second})
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. 直近エラー保持リング付きのロガーに差し替える
	ring := logger.NewErrorRing(20)
	slog.SetDefault(logger.SetupWithRing(os.Stdout, ring))

	// 2. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 3. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)
	newsRepo := repository.NewPostgresNewsRepo(db)

	// 4. セキュリティ・観測サービスの初期化
	urlGuard := security.NewURLGuard()
	sanitizer := security.NewSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	identityProvider := newIdentityProvider(cfg)

	profileService := profile.NewService(profileRepo, sanitizer, urlGuard)
	authService := auth.NewService(
		identityProvider, profileService, sessionRepo,
		auth.ServiceConfig{
			SessionMaxAge:    cfg.SessionMaxAge,
			GuardLogoutDelay: cfg.GuardLogoutDelay,
		},
		collector,
	)
	tokenService := token.NewService(tokenRepo, sanitizer, urlGuard, collector)
	newsService := news.NewService(newsRepo, sanitizer)

	// 6. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		Collector:         collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProfileService: profileService,
		TokenService:   tokenService,
		NewsService:    newsService,

		MetricsGatherer: registry,
		ErrorRing:       ring,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、ニュースフェッチバッチとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリ・セキュリティサービスの初期化
	newsRepo := repository.NewPostgresNewsRepo(db)
	urlGuard := security.NewURLGuard()
	sanitizer := security.NewSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. ニュースフェッチバッチの初期化
	fetcher := news.NewFetcher(urlGuard, slog.Default(), cfg.NewsFetchTimeout, cfg.NewsFetchMaxSize)
	newsService := news.NewService(newsRepo, sanitizer)
	batch := news.NewBatchJob(fetcher, newsService, slog.Default(), news.BatchConfig{
		FetchInterval: cfg.NewsFetchInterval,
		APIInterval:   cfg.NewsAPIInterval,
		FeedURLs:      cfg.NewsFeedURLs,
	}, collector)

	// 4. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("news_fetch_interval", cfg.NewsFetchInterval),
		slog.Int("news_sources", len(cfg.NewsFeedURLs)),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// ニュースフェッチバッチをメインgoroutineで実行（ブロッキング）
	batch.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
