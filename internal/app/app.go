// Package app はアプリケーションの起動とライフサイクル管理を提供する。
// 環境変数からの設定読み込み、依存関係のワイヤリング、HTTPサーバーの
// 起動とグレースフルシャットダウンをまとめる。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/kurumart/internal/audit"
	"github.com/hitoshi/kurumart/internal/auth"
	"github.com/hitoshi/kurumart/internal/car"
	"github.com/hitoshi/kurumart/internal/config"
	"github.com/hitoshi/kurumart/internal/database"
	"github.com/hitoshi/kurumart/internal/favorite"
	"github.com/hitoshi/kurumart/internal/handler"
	"github.com/hitoshi/kurumart/internal/inquiry"
	"github.com/hitoshi/kurumart/internal/loan"
	"github.com/hitoshi/kurumart/internal/logger"
	"github.com/hitoshi/kurumart/internal/metrics"
	"github.com/hitoshi/kurumart/internal/middleware"
	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/purchase"
	"github.com/hitoshi/kurumart/internal/repository"
	"github.com/hitoshi/kurumart/internal/security"
	"github.com/hitoshi/kurumart/internal/user"
	"github.com/hitoshi/kurumart/internal/worker/cleanup"
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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// 期限切れセッションと監査ログのクリーンアップジョブも同一プロセス内で
// 定期実行する。SIGINTまたはSIGTERMを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	carRepo := repository.NewPostgresCarRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)
	purchaseRepo := repository.NewPostgresPurchaseRepo(db)
	inquiryRepo := repository.NewPostgresInquiryRepo(db)
	loanQuoteRepo := repository.NewPostgresLoanQuoteRepo(db)
	activityRepo := repository.NewPostgresActivityLogRepo(db)

	// 3. メトリクスとセキュリティ
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	sanitizer := security.NewContentSanitizer()

	// 4. ドメインサービスの初期化
	auditService := audit.NewService(activityRepo)
	authService := auth.NewService(sessionRepo, userRepo, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		IdleTimeout:   cfg.SessionIdleTimeout,
	})
	userService := user.NewService(userRepo, sessionRepo, favoriteRepo, auditService)
	carService := car.NewService(carRepo, sanitizer, auditService)
	favoriteService := favorite.NewService(favoriteRepo, carRepo)
	purchaseService := purchase.NewService(purchaseRepo, carRepo, userRepo, auditService)
	inquiryService := inquiry.NewService(inquiryRepo, carRepo, sanitizer, auditService)
	loanService := loan.NewService(loanQuoteRepo, collector)

	// 5. 初期管理者のブートストラップ
	if err := ensureAdmin(context.Background(), cfg, userRepo); err != nil {
		return fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	sessionConfig := middleware.SessionConfig{
		IdleTimeout:  cfg.SessionIdleTimeout,
		CookieMaxAge: cfg.SessionMaxAge,
		CookieSecure: cfg.CookieSecure,
		CookieDomain: cfg.CookieDomain,
	}

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionService:    authService,
		SessionFinder:     sessionRepo,
		SessionConfig:     sessionConfig,
		CSRFValidator:     authService,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		MetricsGatherer:   registry,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		AuthService:    authService,
		AccountService: userService,
		UserService:    userService,

		CarService:      carService,
		FavoriteService: favoriteService,
		InquiryService:  inquiryService,
		LoanService:     loanService,

		UserAdminService:    userService,
		InquiryAdminService: inquiryService,
		PurchaseService:     purchaseService,
		AuditService:        auditService,
	}

	router := handler.NewRouter(deps)

	// 7. クリーンアップジョブをバックグラウンドで定期実行
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	cleanupJob := cleanup.NewJob(sessionRepo, activityRepo, collector, slog.Default())
	cleanupJob.ActivityRetentionDays = cfg.ActivityRetentionDays
	go cleanupJob.RunPeriodic(jobCtx, cfg.SessionSweepInterval)

	// 8. HTTPサーバーの起動
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
	jobCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// rateLimiterConfig は設定のreq/min値をrate.Limit（req/sec）に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitLogin > 0 {
		rlCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
		rlCfg.LoginBurst = cfg.RateLimitLogin
	}
	return rlCfg
}

// ensureAdmin はADMIN_EMAILが設定されている場合に初期管理者アカウントを作成する。
// 同じメールアドレスのユーザーが既に存在する場合は何もしない（冪等）。
func ensureAdmin(ctx context.Context, cfg *config.Config, userRepo repository.UserRepository) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	existing, err := userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	admin := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "管理者",
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("admin user created", slog.String("email", email))
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
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
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
