package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/researchtracker/internal/authz"
	"github.com/hitoshi/researchtracker/internal/middleware"
	"github.com/hitoshi/researchtracker/internal/repository"
	"github.com/hitoshi/researchtracker/internal/session"
)

// MetricsRecorder はルーターが使うメトリクスの記録先。metrics.Collectorが実装する。
type MetricsRecorder interface {
	session.RestoreObserver
	middleware.DenialRecorder
	middleware.StatusRecorder
	LoginRecorder
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger   *slog.Logger
	Renderer PageRenderer

	// クライアントセッション
	ClientState  repository.ClientStateRepository
	CookieMaxAge int
	CookieSecure bool
	CookieDomain string

	RateLimiter *middleware.RateLimiter
	Services    ServiceProvider
	LinkChecker LinkChecker

	// Metrics はnilでもよい。MetricsHandlerは/metricsに公開する。
	Metrics        MetricsRecorder
	MetricsHandler http.Handler
	// Health は/healthの応答前に呼ぶ依存先の確認。nilの場合は常にok。
	Health func(r *http.Request) error
}

// NewRouter は全ページのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → ClientSession → Logging → RateLimit(General) → CSRF
//
// ログイン必須のルートはさらに RequireAuth → RequireAction を通る。
// /health と /metrics はチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &pages{renderer: deps.Renderer, logger: logger}

	var (
		observer session.RestoreObserver
		denials  middleware.DenialRecorder
		statuses middleware.StatusRecorder
		logins   LoginRecorder
	)
	if deps.Metrics != nil {
		observer, denials, statuses, logins = deps.Metrics, deps.Metrics, deps.Metrics, deps.Metrics
	}

	access := middleware.NewAccess(middleware.AccessConfig{
		LoginPath: loginPath,
		Forbidden: http.HandlerFunc(p.Forbidden),
		Recorder:  denials,
		Logger:    logger,
	})
	can := access.RequireAction

	authHandler := NewAuthHandler(p, deps.Services, logins)
	dashboardHandler := NewDashboardHandler(p)
	projectHandler := NewProjectHandler(p, deps.Services, deps.LinkChecker)
	adminHandler := NewAdminHandler(p, deps.Services)

	r := chi.NewRouter()

	r.Get("/health", healthHandler(deps.Health, logger))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRecoveryMiddleware(logger, http.HandlerFunc(p.InternalError)))
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewClientSessionMiddleware(middleware.ClientSessionConfig{
			Repo:         deps.ClientState,
			CookieMaxAge: deps.CookieMaxAge,
			CookieSecure: deps.CookieSecure,
			CookieDomain: deps.CookieDomain,
			Observer:     observer,
			Logger:       logger,
		}))
		r.Use(middleware.NewLoggingMiddleware(logger, statuses))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware(http.HandlerFunc(p.TooManyRequests)))
		}
		r.Use(middleware.NewCSRFMiddleware(middleware.CSRFConfig{
			CookieSecure: deps.CookieSecure,
			CookieDomain: deps.CookieDomain,
		}))

		r.NotFound(p.NotFound)

		// --- ログイン不要のルート ---
		r.Get("/", authHandler.Root)
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.LoginMiddleware(http.HandlerFunc(p.TooManyRequests)))
			}
			r.Get("/login", authHandler.LoginPage)
			r.Post("/login", authHandler.Login)
			r.Get("/signup", authHandler.SignupPage)
			r.Post("/signup", authHandler.Signup)
		})
		r.Post("/logout", authHandler.Logout)

		// --- ログインが必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(access.RequireAuth())

			r.With(can(authz.ActionViewDashboard)).Get("/dashboard", dashboardHandler.Dashboard)
			r.With(can(authz.ActionViewMilestones)).Get("/milestones", dashboardHandler.Milestones)
			r.With(can(authz.ActionViewDocuments)).Get("/documents", dashboardHandler.Documents)

			r.Route("/projects", func(r chi.Router) {
				r.With(can(authz.ActionViewProjects)).Get("/", projectHandler.List)
				r.With(can(authz.ActionCreateProject)).Post("/", projectHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.With(can(authz.ActionViewProjects)).Get("/", projectHandler.Detail)
					r.With(can(authz.ActionEditProject)).Post("/", projectHandler.Update)
					r.With(can(authz.ActionEditProject)).Post("/status", projectHandler.UpdateStatus)
					r.With(can(authz.ActionDeleteProject)).Post("/delete", projectHandler.Delete)

					r.With(can(authz.ActionCreateMilestone)).Post("/milestones", projectHandler.CreateMilestone)
					r.With(can(authz.ActionUpdateMilestone)).Post("/milestones/{milestoneID}/toggle", projectHandler.ToggleMilestone)
					r.With(can(authz.ActionDeleteMilestone)).Post("/milestones/{milestoneID}/delete", projectHandler.DeleteMilestone)

					r.With(can(authz.ActionCreateDocument)).Post("/documents", projectHandler.CreateDocument)
					r.With(can(authz.ActionDeleteDocument)).Post("/documents/{documentID}/delete", projectHandler.DeleteDocument)
					r.With(can(authz.ActionViewDocuments)).Post("/documents/{documentID}/check", projectHandler.CheckDocumentLink)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(can(authz.ActionViewAdminPanel))
				r.Get("/", adminHandler.Panel)
				r.Post("/users/{id}/role", adminHandler.ChangeRole)
				r.Post("/users/{id}/delete", adminHandler.DeleteUser)
			})
		})
	})

	return r
}

// healthHandler は依存先の確認結果をJSONで返す。
func healthHandler(check func(r *http.Request) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r); err != nil {
				logger.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
