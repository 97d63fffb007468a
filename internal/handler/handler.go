// Package handler はサーバー描画ページのHTTPハンドラーを提供する。
//
// 状態を変更する操作はすべてフォームのPOSTで受け、処理後にリダイレクトする。
// リダイレクト先のGETでバックエンドから一覧を取り直すため、書き込み後の画面は常に最新になる。
// 失敗時はフラッシュメッセージを残して元の画面に戻し、画面の状態は変えない。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/researchtracker/internal/apiclient"
	"github.com/hitoshi/researchtracker/internal/authz"
	"github.com/hitoshi/researchtracker/internal/middleware"
	"github.com/hitoshi/researchtracker/internal/session"
	"github.com/hitoshi/researchtracker/internal/view"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
	projectsPath  = "/projects"
	adminPath     = "/admin"

	sessionExpiredMessage = "Your session has expired. Please log in again."
)

// PageRenderer はページを描画する。view.Rendererが実装する。
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, name string, page view.Page)
}

// pages はハンドラー共通の描画・リダイレクト処理。
type pages struct {
	renderer PageRenderer
	logger   *slog.Logger
}

// storeFrom はリクエストのセッションStoreを返す。
// NewClientSessionMiddlewareを通過していないリクエストでは呼ばない。
func storeFrom(r *http.Request) *session.Store {
	store, ok := session.FromContext(r.Context())
	if !ok {
		panic("handler: session store missing from request context")
	}
	return store
}

// page は共通データを埋めたview.Pageを組み立てる。保存済みのフラッシュはここで取り出す。
func (p *pages) page(r *http.Request, title, active string, data any) view.Page {
	store := storeFrom(r)
	pg := view.Page{
		Title:     title,
		Active:    active,
		LoggedIn:  store.IsAuthenticated(),
		Perms:     authz.For(store.Role()),
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Data:      data,
	}
	if user, ok := store.User(); ok {
		pg.User = user
	}
	if flash, ok := store.PopFlash(r.Context()); ok {
		pg.Flash = &flash
	}
	return pg
}

// render はページを200で描画する。
func (p *pages) render(w http.ResponseWriter, r *http.Request, name, title, active string, data any) {
	p.renderer.Render(w, http.StatusOK, name, p.page(r, title, active, data))
}

// renderWithError は取得に失敗した画面を、空のデータとエラーメッセージ付きで描画する。
func (p *pages) renderWithError(w http.ResponseWriter, r *http.Request, name, title, active string, data any, message string) {
	pg := p.page(r, title, active, data)
	pg.Flash = &session.Flash{Kind: session.FlashError, Message: message}
	p.renderer.Render(w, http.StatusOK, name, pg)
}

// renderError はエラーページを描画する。
func (p *pages) renderError(w http.ResponseWriter, r *http.Request, status int, heading, message string) {
	p.renderer.Render(w, status, view.PageError, p.page(r, heading, "", view.ErrorData{
		Heading: heading,
		Message: message,
	}))
}

// Forbidden は403ページを描画するハンドラー。RequireActionの拒否時に使う。
func (p *pages) Forbidden(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusForbidden, "Access denied", "You do not have permission to view this page.")
}

// NotFound は404ページを描画するハンドラー。
func (p *pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusNotFound, "Page not found", "The page you are looking for does not exist.")
}

// TooManyRequests は429ページを描画するハンドラー。レート制限の超過時に使う。
func (p *pages) TooManyRequests(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusTooManyRequests, "Too many requests", "Please wait a moment and try again.")
}

// InternalError はpanic時などに500ページを描画するハンドラー。
func (p *pages) InternalError(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); !ok {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	p.renderError(w, r, http.StatusInternalServerError, "Something went wrong", "An internal error occurred. Please try again.")
}

// redirect はフラッシュメッセージを保存してからtoへリダイレクトする。
func (p *pages) redirect(w http.ResponseWriter, r *http.Request, kind session.FlashKind, message, to string) {
	if message != "" {
		if err := storeFrom(r).SetFlash(r.Context(), kind, message); err != nil {
			p.logger.Warn("failed to save flash", slog.String("error", err.Error()))
		}
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail は操作の失敗を表示する。バックエンドが401を返した場合はログアウトしてログイン画面へ送る。
func (p *pages) fail(w http.ResponseWriter, r *http.Request, err error, fallback, to string) {
	if p.expired(w, r, err) {
		return
	}
	p.logger.Warn("request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.redirect(w, r, session.FlashError, apiclient.UserMessage(err, fallback), to)
}

// expired は401の場合にセッションを破棄してログイン画面へリダイレクトし、trueを返す。
func (p *pages) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !apiclient.IsUnauthorized(err) {
		return false
	}
	store := storeFrom(r)
	store.Logout(r.Context())
	p.redirect(w, r, session.FlashError, sessionExpiredMessage, loginPath)
	return true
}
