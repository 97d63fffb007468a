package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/repository"
	"github.com/hitoshi/researchtracker/internal/session"
)

const testClientID = "5b0c7f2e-8a4d-4c1e-9f3a-2d6b8e1c4a70"

// signedToken はexpがexpiresInだけ先のテスト用トークンを返す。
func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

// persistSession はclientIDのセッションをリポジトリに保存する。
func persistSession(t *testing.T, repo repository.ClientStateRepository, clientID string, user model.User) {
	t.Helper()
	store := session.NewStore(repository.ForClient(repo, clientID))
	if err := store.Login(context.Background(), signedToken(t, time.Hour), user); err != nil {
		t.Fatalf("failed to persist session: %v", err)
	}
}

// requestWithStore はroleのユーザーでログイン済みのStoreを持つリクエストを返す。
// roleが空の場合は未ログインのStoreを持つ。
func requestWithStore(t *testing.T, method, target string, role model.Role) *http.Request {
	t.Helper()
	repo := repository.NewMemoryClientStateRepo()
	store := session.NewStore(repository.ForClient(repo, testClientID))
	if role != "" {
		user := model.User{ID: "user-" + string(role), Username: "someone", Role: role}
		if err := store.Login(context.Background(), signedToken(t, time.Hour), user); err != nil {
			t.Fatalf("failed to log in: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, nil)
	ctx := session.NewContext(req.Context(), store)
	ctx = context.WithValue(ctx, clientIDContextKey, clientIDSource{id: testClientID, presented: true})
	return req.WithContext(ctx)
}

type denialRecorder struct {
	actions []string
}

func (d *denialRecorder) RecordAuthzDenied(action string) {
	d.actions = append(d.actions, action)
}

type restoreRecorder struct {
	results []string
}

func (r *restoreRecorder) RecordSessionRestore(result string) {
	r.results = append(r.results, result)
}
