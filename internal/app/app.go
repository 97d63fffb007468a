package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/hitoshi/researchtracker/internal/apiclient"
	"github.com/hitoshi/researchtracker/internal/audit"
	"github.com/hitoshi/researchtracker/internal/config"
	"github.com/hitoshi/researchtracker/internal/database"
	"github.com/hitoshi/researchtracker/internal/handler"
	"github.com/hitoshi/researchtracker/internal/logger"
	"github.com/hitoshi/researchtracker/internal/metrics"
	"github.com/hitoshi/researchtracker/internal/middleware"
	"github.com/hitoshi/researchtracker/internal/repository"
	"github.com/hitoshi/researchtracker/internal/security"
	"github.com/hitoshi/researchtracker/internal/view"
	"github.com/hitoshi/researchtracker/internal/worker/cleanup"
)

// cleanupInterval はクライアント状態のクリーンアップ間隔。
const cleanupInterval = 24 * time.Hour

// Init はアプリケーションの初期化を行う。
// .envファイルと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer, envFile string) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envと環境変数から設定を読み込む
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映する
	if level := logger.ParseLevel(cfg.LogLevel); level != slog.LevelInfo {
		log = logger.SetupDefault(w, level)
	}

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	opts, err := ParseArgs(args, os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if opts.Command == CommandHealthcheck {
		if err := config.LoadEnvFile(opts.EnvFile); err != nil {
			return err
		}
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, log, err := Init(w, opts.EnvFile)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(opts.Command)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_backend", cfg.SessionBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch opts.Command {
	case CommandWorker:
		return runWorker(ctx, cfg, log)
	case CommandMigrate:
		return runMigrate(cfg, log)
	default:
		return runServe(ctx, cfg, log)
	}
}

// clientState はSESSION_BACKENDに応じて開いたクライアント状態の保存先。
type clientState struct {
	repo repository.ClientStateRepository
	// cleanup はserve内で定期実行するジョブ。外部で期限切れを処理する保存先ではnil。
	cleanup cleanup.Job
	health  func(r *http.Request) error
	close   func() error
}

// openClientState は設定された保存先に接続する。
func openClientState(ctx context.Context, cfg *config.Config, log *slog.Logger) (*clientState, error) {
	switch cfg.SessionBackend {
	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Ping(ctx, db, 5*time.Second); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("database connection established")
		return &clientState{
			repo: repository.NewPostgresClientStateRepo(db),
			health: func(r *http.Request) error {
				return database.Ping(r.Context(), db, 2*time.Second)
			},
			close: db.Close,
		}, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
		// 期限切れはキーのTTLで削除される
		return &clientState{
			repo: repository.NewRedisClientStateRepo(rdb, cfg.StateRetention()),
			health: func(r *http.Request) error {
				return rdb.Ping(r.Context()).Err()
			},
			close: rdb.Close,
		}, nil

	default:
		repo := repository.NewMemoryClientStateRepo()
		job := cleanup.NewMemoryCleanupJob(repo, log)
		job.RetentionDays = cfg.StateRetentionDays
		return &clientState{
			repo:    repo,
			cleanup: job,
			close:   func() error { return nil },
		}, nil
	}
}

// newAuditPublisher はAMQP_URLが設定されていればRabbitMQ、なければログに監査イベントを送る。
// 戻り値のcloseは常に呼んでよい。
func newAuditPublisher(cfg *config.Config, log *slog.Logger) (audit.Publisher, func() error) {
	if cfg.AMQPURL == "" {
		return audit.NewLogPublisher(log), func() error { return nil }
	}
	pub, err := audit.DialAMQP(cfg.AMQPURL, cfg.AuditQueue, log)
	if err != nil {
		log.Warn("audit broker unavailable, logging audit events instead",
			slog.String("error", err.Error()),
		)
		return audit.NewLogPublisher(log), func() error { return nil }
	}
	log.Info("audit events are published to amqp", slog.String("queue", cfg.AuditQueue))
	return pub, pub.Close
}

// newServer は全依存関係をワイヤリングしたHTTPサーバーを組み立てる。
// 戻り値のRateLimiterはサーバー停止後にStopすること。
func newServer(cfg *config.Config, log *slog.Logger, state *clientState, publisher audit.Publisher) (*http.Server, *middleware.RateLimiter, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. バックエンドAPIクライアント（リトライなし）
	client := apiclient.New(
		&http.Client{Timeout: cfg.APITimeout},
		cfg.APIBaseURL,
		log,
		apiclient.WithRecorder(collector),
	)

	// 3. 描画
	renderer, err := view.New(security.NewMarkdownRenderer(security.NewContentSanitizer()), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	// 4. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitGeneral, cfg.RateLimitLogin))
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         log,
		Renderer:       renderer,
		ClientState:    state.repo,
		CookieMaxAge:   cfg.ClientCookieMaxAge,
		CookieSecure:   cfg.CookieSecure,
		CookieDomain:   cfg.CookieDomain,
		RateLimiter:    rateLimiter,
		Services:       handler.NewBackendServices(client, publisher, log),
		LinkChecker:    security.NewLinkChecker(security.NewSSRFGuard(), cfg.LinkCheckTimeout, log),
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
		Health:         state.health,
	})

	// バックエンド呼び出し（API_TIMEOUT）が収まるように書き込みタイムアウトを取る
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server, rateLimiter, nil
}

// runServe はWebサーバーモードで起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	state, err := openClientState(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer state.close()

	publisher, closePublisher := newAuditPublisher(cfg, log)
	defer closePublisher()

	server, rateLimiter, err := newServer(cfg, log, state, publisher)
	if err != nil {
		return err
	}
	defer rateLimiter.Stop()

	// メモリ保存の場合はこのプロセス内でクリーンアップする
	if state.cleanup != nil {
		go cleanup.Schedule(ctx, state.cleanup, cleanupInterval, log)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// PostgreSQLのclient_stateから保持期間を過ぎた行を日次で削除する。
// ctxがキャンセルされるまでブロックする。
func runWorker(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.SessionBackend != config.BackendPostgres {
		return fmt.Errorf("worker requires SESSION_BACKEND=postgres (got %q)", cfg.SessionBackend)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established (worker)")

	job := cleanup.NewCleanupJob(db, log)
	job.RetentionDays = cfg.StateRetentionDays

	log.Info("worker starting",
		slog.Duration("interval", cleanupInterval),
		slog.Int("retention_days", job.RetentionDays),
	)
	cleanup.Schedule(ctx, job, cleanupInterval, log)

	log.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, log *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("migrate requires DATABASE_URL")
	}

	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
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
