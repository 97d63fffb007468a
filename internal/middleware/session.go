// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/researchtracker/internal/repository"
	"github.com/hitoshi/researchtracker/internal/session"
)

// ClientCookieName はブラウザを識別するクライアントIDのCookie名。
const ClientCookieName = "rt_client"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var clientIDContextKey = contextKey("client_id")

// clientIDSource はクライアントIDとその出どころを保持する。
type clientIDSource struct {
	id        string
	presented bool // ブラウザがCookieで提示したIDかどうか
}

// ClientSessionConfig はクライアントセッションミドルウェアの設定。
type ClientSessionConfig struct {
	Repo         repository.ClientStateRepository
	CookieMaxAge int
	CookieSecure bool
	CookieDomain string
	Observer     session.RestoreObserver
	Logger       *slog.Logger
}

// NewClientSessionMiddleware はクライアントIDのCookieを読み取り（なければ発行し）、
// そのクライアントの永続化済みセッションを復元したStoreをコンテキストに注入する。
// ログイン・ログアウト時にはStoreがクライアントIDを発行し直す。
// 未ログインでもリクエストは拒否しない。ログイン必須の判定はRequireAuthで行う。
func NewClientSessionMiddleware(cfg ClientSessionConfig) func(next http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			src := clientIDSource{id: clientIDFromCookie(r), presented: true}
			if src.id == "" {
				src = clientIDSource{id: uuid.NewString()}
			}

			// 有効期限を延長するため毎回設定し直す
			setClientCookie(w, cfg, src.id)

			opts := []session.Option{
				session.WithLogger(logger),
				session.WithRotator(&clientRotator{w: w, cfg: cfg}),
			}
			if cfg.Observer != nil {
				opts = append(opts, session.WithObserver(cfg.Observer))
			}
			store := session.NewStore(repository.ForClient(cfg.Repo, src.id), opts...)
			store.Restore(r.Context())

			ctx := session.NewContext(r.Context(), store)
			ctx = context.WithValue(ctx, clientIDContextKey, src)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientRotator は新しいクライアントIDを発行し、commit時にCookieを差し替える。
type clientRotator struct {
	w   http.ResponseWriter
	cfg ClientSessionConfig
}

func (c *clientRotator) Rotate() (session.Storage, func()) {
	id := uuid.NewString()
	return repository.ForClient(c.cfg.Repo, id), func() {
		setClientCookie(c.w, c.cfg, id)
	}
}

// setClientCookie はクライアントIDのCookieを設定する。
// 同じレスポンスで設定済みのクライアントCookieは置き換える。
func setClientCookie(w http.ResponseWriter, cfg ClientSessionConfig, id string) {
	h := w.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, ClientCookieName+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    id,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   cfg.CookieMaxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clientIDFromCookie はCookieのクライアントIDを返す。UUIDとして解釈できない値は無視する。
func clientIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(ClientCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// ClientIDFromContext はリクエストコンテキストからクライアントIDを取得する。
// このリクエストで発行したIDも含む。
func ClientIDFromContext(ctx context.Context) (string, bool) {
	src, ok := ctx.Value(clientIDContextKey).(clientIDSource)
	return src.id, ok && src.id != ""
}

// PresentedClientIDFromContext はブラウザがCookieで提示したクライアントIDを返す。
// Cookieがなくこのリクエストで発行した場合はokがfalse。
func PresentedClientIDFromContext(ctx context.Context) (string, bool) {
	src, ok := ctx.Value(clientIDContextKey).(clientIDSource)
	return src.id, ok && src.presented && src.id != ""
}

// UserIDFromContext はリクエストコンテキストのセッションからユーザーIDを取得する。
// 未ログインの場合はエラーを返す。
func UserIDFromContext(ctx context.Context) (string, error) {
	store, ok := session.FromContext(ctx)
	if !ok || store.UserID() == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return store.UserID(), nil
}
