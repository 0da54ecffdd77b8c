package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kurumart/internal/metrics"
	"github.com/hitoshi/kurumart/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionService    middleware.SessionService
	SessionFinder     middleware.SessionFinder
	SessionConfig     middleware.SessionConfig
	CSRFValidator     middleware.CSRFValidator
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsGatherer   prometheus.Gatherer
	CORSAllowedOrigin string

	// 認証・ユーザー
	AuthService    AuthServiceInterface
	AccountService AccountServiceInterface
	UserService    UserServiceInterface

	// カタログ
	CarService      CarServiceInterface
	FavoriteService FavoriteServiceInterface
	InquiryService  InquiryServiceInterface
	LoanService     LoanServiceInterface

	// 管理者
	UserAdminService    UserAdminServiceInterface
	InquiryAdminService InquiryAdminServiceInterface
	PurchaseService     interface {
		PurchaseRecorderInterface
		PurchaseListerInterface
	}
	AuditService AuditServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging
//	  → Session → RateLimit(General) → CSRF
//
// /healthz と /metrics はセッション管理の外に配置する。
// ログインとユーザー登録にはIP単位のレート制限を追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	// セッション不要のルート
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))

	authHandler := NewAuthHandler(deps.AuthService, deps.AccountService, deps.Metrics, deps.SessionConfig)
	carHandler := NewCarHandler(deps.CarService, deps.AuthService)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)
	inquiryHandler := NewInquiryHandler(deps.InquiryService)
	loanHandler := NewLoanHandler(deps.LoanService)
	userHandler := NewUserHandler(deps.UserService, deps.PurchaseService, deps.SessionConfig)
	adminHandler := NewAdminHandler(
		deps.UserAdminService,
		deps.InquiryAdminService,
		deps.PurchaseService,
		deps.AuditService,
		deps.AuthService,
	)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionService, deps.SessionFinder, deps.SessionConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFValidator, deps.Metrics))

		// --- 認証ルート ---
		r.Route("/api/auth", func(r chi.Router) {
			// 登録とログインにはIP単位のレート制限を追加（Cookie破棄での回避を防ぐ）
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
			r.Get("/csrf", authHandler.CSRFToken)
		})

		// --- 公開ルート（未ログインでも閲覧・送信可能） ---
		r.Route("/api/cars", func(r chi.Router) {
			r.Get("/", carHandler.List)
			r.Get("/{id}", carHandler.Get)
		})
		r.Post("/api/inquiries", inquiryHandler.Submit)
		r.Post("/api/loan/calculate", loanHandler.Calculate)

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAuthMiddleware(deps.SessionService))

			r.Route("/api/favorites", func(r chi.Router) {
				r.Post("/", favoriteHandler.Add)
				r.Get("/", favoriteHandler.List)
				r.Delete("/{carID}", favoriteHandler.Remove)
			})

			r.Route("/api/users/me", func(r chi.Router) {
				r.Delete("/", userHandler.Withdraw)
				r.Get("/purchases", userHandler.ListPurchases)
			})

			r.Route("/api/loan/quotes", func(r chi.Router) {
				r.Post("/", loanHandler.Save)
				r.Get("/", loanHandler.ListSaved)
			})
		})

		// --- 管理者ルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAdminMiddleware(deps.SessionService))

			r.Route("/api/admin", func(r chi.Router) {
				r.Route("/cars", func(r chi.Router) {
					r.Post("/", carHandler.Create)
					r.Put("/{id}", carHandler.Update)
					r.Post("/{id}/sold", carHandler.MarkSold)
					r.Delete("/{id}", carHandler.Delete)
				})

				r.Route("/users", func(r chi.Router) {
					r.Get("/", adminHandler.ListUsers)
					r.Put("/{id}/active", adminHandler.SetUserActive)
				})

				r.Route("/inquiries", func(r chi.Router) {
					r.Get("/", adminHandler.ListInquiries)
					r.Post("/{id}/answer", adminHandler.AnswerInquiry)
				})

				r.Post("/purchases", adminHandler.RecordPurchase)
				r.Get("/activity", adminHandler.ListActivityLogs)
			})
		})
	})

	return r
}
