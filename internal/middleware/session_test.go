package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/repository"
	"github.com/hitoshi/researchtracker/internal/session"
)

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestClientSessionMiddleware_IssuesClientIDForNewBrowser(t *testing.T) {
	repo := repository.NewMemoryClientStateRepo()
	mw := NewClientSessionMiddleware(ClientSessionConfig{Repo: repo, CookieMaxAge: 3600})

	var authenticated bool
	var clientID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, ok := session.FromContext(r.Context())
		if !ok {
			t.Fatal("store should be in context")
		}
		authenticated = store.IsAuthenticated()
		clientID, _ = ClientIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	if authenticated {
		t.Error("new browser should not be authenticated")
	}
	cookie := findCookie(w.Result(), ClientCookieName)
	if cookie == nil {
		t.Fatal("client cookie should be set")
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		t.Errorf("client id %q is not a uuid: %v", cookie.Value, err)
	}
	if cookie.Value != clientID {
		t.Errorf("context client id = %q, cookie = %q", clientID, cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("client cookie should be HttpOnly")
	}
	if cookie.MaxAge != 3600 {
		t.Errorf("MaxAge = %d, want 3600", cookie.MaxAge)
	}
}

func TestClientSessionMiddleware_RestoresPersistedSession(t *testing.T) {
	repo := repository.NewMemoryClientStateRepo()
	persistSession(t, repo, testClientID, model.User{ID: "u1", Username: "alice", Role: model.RolePI})

	observer := &restoreRecorder{}
	mw := NewClientSessionMiddleware(ClientSessionConfig{Repo: repo, Observer: observer})

	var userID string
	var role model.Role
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, _ := session.FromContext(r.Context())
		role = store.Role()
		userID, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: testClientID})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if userID != "u1" {
		t.Errorf("userID = %q, want %q", userID, "u1")
	}
	if role != model.RolePI {
		t.Errorf("role = %q, want %q", role, model.RolePI)
	}
	if len(observer.results) != 1 || observer.results[0] != string(session.RestoreValid) {
		t.Errorf("observer results = %v, want [valid]", observer.results)
	}
	if c := findCookie(w.Result(), ClientCookieName); c == nil || c.Value != testClientID {
		t.Errorf("client cookie should be refreshed with the same id, got %v", c)
	}
}

func TestClientSessionMiddleware_ReplacesMalformedClientID(t *testing.T) {
	repo := repository.NewMemoryClientStateRepo()
	mw := NewClientSessionMiddleware(ClientSessionConfig{Repo: repo})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: "not-a-uuid"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	cookie := findCookie(w.Result(), ClientCookieName)
	if cookie == nil || cookie.Value == "not-a-uuid" {
		t.Fatalf("malformed client id should be replaced, got %v", cookie)
	}
}

func TestClientSessionMiddleware_SessionsAreIsolatedPerClient(t *testing.T) {
	repo := repository.NewMemoryClientStateRepo()
	persistSession(t, repo, testClientID, model.User{ID: "u1", Role: model.RoleAdmin})

	mw := NewClientSessionMiddleware(ClientSessionConfig{Repo: repo})
	var authenticated bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, _ := session.FromContext(r.Context())
		authenticated = store.IsAuthenticated()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: uuid.NewString()})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if authenticated {
		t.Error("another client must not see the persisted session")
	}
}

func TestClientSessionMiddleware_LoginAndLogoutIssueNewClientID(t *testing.T) {
	repo := repository.NewMemoryClientStateRepo()
	mw := NewClientSessionMiddleware(ClientSessionConfig{Repo: repo})
	user := model.User{ID: "u1", Username: "alice", Role: model.RolePI}
	token := signedToken(t, time.Hour)

	send := func(clientID string, fn func(*session.Store)) *http.Response {
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, _ := session.FromContext(r.Context())
			fn(store)
		}))
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: clientID})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Result()
	}

	resp := send(testClientID, func(s *session.Store) {
		if err := s.Login(context.Background(), token, user); err != nil {
			t.Fatalf("Login returned error: %v", err)
		}
	})

	var clientCookies []*http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == ClientCookieName {
			clientCookies = append(clientCookies, c)
		}
	}
	if len(clientCookies) != 1 {
		t.Fatalf("expected exactly one client cookie, got %d", len(clientCookies))
	}
	loggedIn := clientCookies[0].Value
	if loggedIn == testClientID {
		t.Fatal("client id should change on login")
	}
	if _, ok, _ := repo.Get(context.Background(), testClientID, session.KeyToken); ok {
		t.Error("session must not be reachable with the pre-login client id")
	}
	if _, ok, _ := repo.Get(context.Background(), loggedIn, session.KeyToken); !ok {
		t.Error("session should be persisted under the new client id")
	}

	resp = send(loggedIn, func(s *session.Store) { s.Logout(context.Background()) })
	c := findCookie(resp, ClientCookieName)
	if c == nil || c.Value == loggedIn {
		t.Fatalf("client id should change on logout, got %v", c)
	}
	if _, ok, _ := repo.Get(context.Background(), loggedIn, session.KeyToken); ok {
		t.Error("session should be erased on logout")
	}
}

func TestPresentedClientIDFromContext(t *testing.T) {
	mw := NewClientSessionMiddleware(ClientSessionConfig{Repo: repository.NewMemoryClientStateRepo()})

	tests := []struct {
		name   string
		cookie string
		want   bool
	}{
		{"cookie presented", testClientID, true},
		{"no cookie", "", false},
		{"malformed cookie", "not-a-uuid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var presented, known bool
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, presented = PresentedClientIDFromContext(r.Context())
				_, known = ClientIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: tt.cookie})
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if presented != tt.want {
				t.Errorf("presented = %v, want %v", presented, tt.want)
			}
			if !known {
				t.Error("client id should always be available")
			}
		})
	}
}

func TestUserIDFromContext_NoStore(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error without a session store")
	}
}
