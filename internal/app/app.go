// Package app はプロセスの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/config"
	"github.com/hitoshi/authgate/internal/database"
	"github.com/hitoshi/authgate/internal/handler"
	"github.com/hitoshi/authgate/internal/item"
	"github.com/hitoshi/authgate/internal/logger"
	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/password"
	"github.com/hitoshi/authgate/internal/refreshstore"
	"github.com/hitoshi/authgate/internal/repository"
	"github.com/hitoshi/authgate/internal/token"
	"github.com/hitoshi/authgate/internal/worker/cleanup"
)

// 起動時の外部依存への接続確認の待ち時間
const startupPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成する
	logger.SetupDefault(w, cfg.LogLevel)

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
			port = "4000"
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
		slog.String("base_url", cfg.BaseURL),
		slog.String("refresh_store", cfg.RefreshStore),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSweep:
		return runSweep(cfg)
	default:
		return runServe(cfg)
	}
}

// components はserveモードで組み立てた依存関係一式。
type components struct {
	db          *sql.DB
	store       refreshstore.Store
	router      http.Handler
	rateLimiter *middleware.RateLimiter
	sweeper     *cleanup.SweepJob
	closers     []func() error
}

// Close は確保したリソースを逆順に解放する。
func (c *components) Close() {
	if c.rateLimiter != nil {
		c.rateLimiter.Stop()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			slog.Warn("failed to close resource", slog.String("error", err.Error()))
		}
	}
}

// build は設定に従って全依存関係をワイヤリングする。
// DATABASE_URLが空の場合はインメモリリポジトリで構成する。
// DBに到達できない場合もプロセスは起動し、/health が503を返す。
func build(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{}

	// 1. DB接続（任意）
	if cfg.DatabaseURL != "" {
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.db = db
		c.closers = append(c.closers, db.Close)
	}

	// 2. リポジトリの初期化
	var (
		userRepo repository.UserRepository
		itemRepo repository.ItemRepository
	)
	if c.db != nil {
		userRepo = repository.NewPostgresUserRepo(c.db)
		itemRepo = repository.NewPostgresItemRepo(c.db)
	} else {
		slog.Warn("DATABASE_URL is not set; using in-memory repositories")
		userRepo = repository.NewMemoryUserRepo()
		itemRepo = repository.NewMemoryItemRepo(repository.SeedItems()...)
	}

	// 3. リフレッシュトークンストアの初期化
	store, closeStore, err := openRefreshStore(ctx, cfg, c.db)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.store = store
	if closeStore != nil {
		c.closers = append(c.closers, closeStore)
	}

	// 4. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	hasher, err := password.NewHasher(cfg.BcryptCost)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}

	secret := []byte(cfg.AccessTokenSecret)
	issuer, err := token.NewIssuer(token.IssuerConfig{
		Secret:     secret,
		Issuer:     cfg.TokenIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, store)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	verifier := token.NewVerifier(secret, cfg.TokenIssuer, nil)

	authService := auth.NewService(userRepo, hasher, issuer, store, collector, auth.ServiceConfig{
		RefreshRotate: cfg.RefreshRotate,
	})
	itemService := item.NewItemService(itemRepo)

	// 6. 掃除ジョブ
	c.sweeper = cleanup.NewSweepJob(store, collector, slog.Default())

	// 7. ルーターの構築
	c.rateLimiter = middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     verifier,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       c.rateLimiter,
		TrustProxy:        cfg.TrustProxy,

		Metrics:  collector,
		Gatherer: registry,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			RefreshMaxAge: int(cfg.RefreshTokenTTL / time.Second),
		},

		ItemService: itemService,
	}
	// インメモリ構成ではヘルスチェック対象なし（nilインターフェースのまま渡す）
	if c.db != nil {
		deps.HealthChecker = c.db
	}

	c.router = handler.NewRouter(deps)

	return c, nil
}

// openDatabase はDB接続を開く。到達できない場合もエラーにせずログに記録する。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(ctx, db, startupPingTimeout); err != nil {
		slog.Error("database is unreachable; starting in degraded mode",
			slog.String("database_url", maskDatabaseURL(databaseURL)),
			slog.String("error", err.Error()),
		)
		return db, nil
	}

	slog.Info("database connection established")
	return db, nil
}

// openRefreshStore はREFRESH_STOREに応じたリフレッシュトークンストアを生成する。
// 解放が必要な場合は2番目の戻り値にクローズ関数を返す。
func openRefreshStore(ctx context.Context, cfg *config.Config, db *sql.DB) (refreshstore.Store, func() error, error) {
	switch cfg.RefreshStore {
	case config.RefreshStorePostgres:
		if db == nil {
			return nil, nil, errors.New("postgres refresh store requires a database connection")
		}
		return refreshstore.NewPostgresStore(db, nil), nil, nil

	case config.RefreshStoreRedis:
		client, err := refreshstore.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			slog.Error("redis is unreachable; refresh operations will fail until it recovers",
				slog.String("error", err.Error()),
			)
		}
		return refreshstore.NewRedisStore(client, "", nil), client.Close, nil

	default:
		slog.Warn("using in-memory refresh token store; tokens are lost on restart")
		return refreshstore.NewMemoryStore(nil), nil, nil
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、掃除ジョブとHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	// 期限切れリフレッシュトークンの定期掃除
	go c.sweeper.Start(ctx, cfg.RefreshSweepInterval)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      c.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runSweep は期限切れリフレッシュトークンの掃除を1回実行する。
func runSweep(cfg *config.Config) error {
	if cfg.RefreshStore == config.RefreshStoreMemory {
		slog.Info("in-memory refresh token store has nothing to sweep across processes")
		return nil
	}

	ctx := context.Background()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		opened, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer opened.Close()
		if err := database.Ping(ctx, opened, startupPingTimeout); err != nil {
			return err
		}
		db = opened
	}

	store, closeStore, err := openRefreshStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	job := cleanup.NewSweepJob(store, nil, slog.Default())
	if _, err := job.Run(ctx); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
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
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
