package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/researchtracker/internal/apiclient"
	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/service"
	"github.com/hitoshi/researchtracker/internal/session"
	"github.com/hitoshi/researchtracker/internal/view"
)

// LoginRecorder はログイン試行の成否を記録する。
type LoginRecorder interface {
	RecordLoginAttempt(success bool)
}

// AuthHandler はログイン・サインアップ・ログアウトのハンドラー。
type AuthHandler struct {
	*pages
	services ServiceProvider
	recorder LoginRecorder
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnilでもよい。
func NewAuthHandler(p *pages, services ServiceProvider, recorder LoginRecorder) *AuthHandler {
	return &AuthHandler{pages: p, services: services, recorder: recorder}
}

// Root はログイン状態に応じてダッシュボードかログイン画面へ送る。
// GET /
func (h *AuthHandler) Root(w http.ResponseWriter, r *http.Request) {
	if storeFrom(r).IsAuthenticated() {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// LoginPage はログイン画面を表示する。ログイン済みの場合はダッシュボードへ送る。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if storeFrom(r).IsAuthenticated() {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	h.render(w, r, view.PageLogin, "Sign in", "", view.AuthFormData{})
}

// Login は資格情報をバックエンドに送り、返されたトークンでセッションを開始する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	req := service.LoginRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	resp, err := h.services.ServicesFor(store).Auth.Login(r.Context(), req)
	if err != nil {
		h.recordLogin(false)
		h.logger.Info("login failed",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		h.rerender(w, r, view.PageLogin, "Sign in", view.AuthFormData{Username: req.Username},
			apiclient.UserMessage(err, "Login failed. Please check your username and password."))
		return
	}

	if err := h.startSession(r, store, resp); err != nil {
		h.recordLogin(false)
		h.rerender(w, r, view.PageLogin, "Sign in", view.AuthFormData{Username: req.Username},
			"Could not start your session. Please try again.")
		return
	}

	h.recordLogin(true)
	h.redirect(w, r, session.FlashSuccess, "", dashboardPath)
}

// SignupPage はサインアップ画面を表示する。
// GET /signup
func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	if storeFrom(r).IsAuthenticated() {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	h.render(w, r, view.PageSignup, "Create account", "", view.AuthFormData{})
}

// Signup はアカウントを作成し、返されたトークンでそのままログインする。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	req := service.SignupRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		FullName: r.PostFormValue("fullName"),
	}
	form := view.AuthFormData{Username: req.Username, FullName: req.FullName}

	resp, err := h.services.ServicesFor(store).Auth.Signup(r.Context(), req)
	if err != nil {
		h.rerender(w, r, view.PageSignup, "Create account", form,
			apiclient.UserMessage(err, "Sign up failed. Please try again."))
		return
	}

	if err := h.startSession(r, store, resp); err != nil {
		h.rerender(w, r, view.PageSignup, "Create account", form,
			"Your account was created but we could not sign you in. Please log in.")
		return
	}

	h.redirect(w, r, session.FlashSuccess, "Welcome to Research Tracker!", dashboardPath)
}

// Logout はセッションを破棄してログイン画面へ戻す。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	storeFrom(r).Logout(r.Context())
	h.redirect(w, r, session.FlashSuccess, "You have been logged out.", loginPath)
}

func (h *AuthHandler) startSession(r *http.Request, store *session.Store, resp model.AuthResponse) error {
	if err := store.Login(r.Context(), resp.Token, resp.User()); err != nil {
		h.logger.Error("failed to start session", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// rerender は入力値を残したままフォームを再表示する。
func (h *AuthHandler) rerender(w http.ResponseWriter, r *http.Request, name, title string, form view.AuthFormData, message string) {
	h.renderWithError(w, r, name, title, "", form, message)
}

func (h *AuthHandler) recordLogin(success bool) {
	if h.recorder != nil {
		h.recorder.RecordLoginAttempt(success)
	}
}
