package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/researchtracker/internal/authz"
	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/session"
)

// DenialRecorder は認可拒否を記録する。
type DenialRecorder interface {
	RecordAuthzDenied(action string)
}

// AccessConfig はアクセス制御ミドルウェアの設定。
type AccessConfig struct {
	// LoginPath は未ログイン時のリダイレクト先。
	LoginPath string
	// Forbidden は拒否時のレスポンスを書き込む。403のステータスも自分で書くこと。
	Forbidden http.Handler
	Recorder  DenialRecorder
	Logger    *slog.Logger
}

// Access はセッションとロールによるルートの保護を提供する。
type Access struct {
	loginPath string
	forbidden http.Handler
	recorder  DenialRecorder
	logger    *slog.Logger
}

// NewAccess はAccessを生成する。
func NewAccess(cfg AccessConfig) *Access {
	a := &Access{
		loginPath: cfg.LoginPath,
		forbidden: cfg.Forbidden,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
	}
	if a.loginPath == "" {
		a.loginPath = "/login"
	}
	if a.forbidden == nil {
		a.forbidden = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// RequireAuth は未ログインのリクエストをログイン画面へリダイレクトする。
// NewClientSessionMiddlewareの後に配置する。
func (a *Access) RequireAuth() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := session.FromContext(r.Context())
			if !ok || !store.IsAuthenticated() {
				http.Redirect(w, r, a.loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAction はセッションのロールにactionが許可されていない場合に403を返す。
// 拒否した場合は後続のハンドラーを呼ばないため、バックエンドへの取得も行われない。
func (a *Access) RequireAction(action authz.Action) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var role model.Role
			if store, ok := session.FromContext(r.Context()); ok {
				role = store.Role()
			}

			if !authz.Authorize(role, action) {
				a.logger.Warn("access denied",
					slog.String("action", string(action)),
					slog.String("role", string(role)),
					slog.String("path", r.URL.Path),
				)
				if a.recorder != nil {
					a.recorder.RecordAuthzDenied(string(action))
				}
				a.forbidden.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
