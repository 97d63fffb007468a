package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/researchtracker/internal/model"
)

// fakeBackend はバックエンドREST APIのテスト用実装。
type fakeBackend struct {
	t *testing.T

	mu         sync.Mutex
	projects   map[string]model.Project
	milestones map[string][]model.Milestone
	documents  map[string][]model.Document
	users      []model.User
	calls      []string
	bodies     map[string]map[string]any
	nextID     int

	// failStatus が0以外の場合、すべての呼び出しにそのステータスを返す
	failStatus int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:          t,
		projects:   make(map[string]model.Project),
		milestones: make(map[string][]model.Milestone),
		documents:  make(map[string][]model.Document),
		bodies:     make(map[string]map[string]any),
	}
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": success, "message": message, "data": data})
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *fakeBackend) called(call string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (b *fakeBackend) body(call string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[call]
}

func (b *fakeBackend) id(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s%d", prefix, b.nextID)
}

// decode はリクエストボディをv（とログ用のmap）にデコードする。
func (b *fakeBackend) decode(r *http.Request, v any) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		b.t.Errorf("backend: invalid body for %s %s: %v", r.Method, r.URL.Path, err)
		return
	}
	b.bodies[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api")] = raw
	data, _ := json.Marshal(raw)
	json.Unmarshal(data, v)
}

func (b *fakeBackend) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			b.calls = append(b.calls, r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api"))
			fail := b.failStatus
			b.mu.Unlock()

			if fail != 0 {
				writeEnvelope(w, fail, false, http.StatusText(fail), nil)
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", b.login)
		r.Post("/auth/signup", b.signup)

		r.Get("/projects", b.listProjects)
		r.Post("/projects", b.createProject)
		r.Get("/projects/{id}", b.getProject)
		r.Put("/projects/{id}", b.updateProject)
		r.Patch("/projects/{id}/status", b.updateProjectStatus)
		r.Delete("/projects/{id}", b.deleteProject)

		r.Get("/projects/{id}/milestones", b.listMilestones)
		r.Post("/projects/{id}/milestones", b.createMilestone)
		r.Put("/milestones/{id}", b.updateMilestone)
		r.Delete("/milestones/{id}", b.deleteMilestone)

		r.Get("/projects/{id}/documents", b.listDocuments)
		r.Post("/projects/{id}/documents", b.createDocument)
		r.Delete("/documents/{id}", b.deleteDocument)

		r.Get("/users", b.listUsers)
		r.Get("/users/{id}", b.getUser)
		r.Put("/users/{id}/role", b.updateRole)
		r.Delete("/users/{id}", b.deleteUser)
	})
	return r
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req struct{ Username, Password string }
	b.decode(r, &req)
	if req.Password != "secret" {
		writeEnvelope(w, http.StatusUnauthorized, false, "Invalid username or password", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, true, "", model.AuthResponse{
		Token:    signToken(b.t, time.Now().Add(time.Hour)),
		UserID:   "u-" + req.Username,
		Username: req.Username,
		FullName: "Alice Smith",
		Role:     model.RolePI,
	})
}

func (b *fakeBackend) signup(w http.ResponseWriter, r *http.Request) {
	var req struct{ Username, Password, FullName string }
	b.decode(r, &req)
	if req.Username == "taken" {
		writeEnvelope(w, http.StatusOK, false, "Username is already taken", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, true, "", model.AuthResponse{
		Token:    signToken(b.t, time.Now().Add(time.Hour)),
		UserID:   "u-" + req.Username,
		Username: req.Username,
		FullName: req.FullName,
		Role:     model.RoleMember,
	})
}

func (b *fakeBackend) listProjects(w http.ResponseWriter, r *http.Request) {
	out := make([]model.Project, 0, len(b.projects))
	for _, p := range b.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeEnvelope(w, http.StatusOK, true, "", out)
}

func (b *fakeBackend) createProject(w http.ResponseWriter, r *http.Request) {
	var p model.Project
	b.decode(r, &p)
	p.ID = b.id("p")
	b.projects[p.ID] = p
	writeEnvelope(w, http.StatusOK, true, "Project created", p)
}

func (b *fakeBackend) getProject(w http.ResponseWriter, r *http.Request) {
	p, ok := b.projects[chi.URLParam(r, "id")]
	if !ok {
		writeEnvelope(w, http.StatusNotFound, false, "Project not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, true, "", p)
}

func (b *fakeBackend) updateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p model.Project
	b.decode(r, &p)
	p.ID = id
	p.PI = b.projects[id].PI
	b.projects[id] = p
	writeEnvelope(w, http.StatusOK, true, "", p)
}

func (b *fakeBackend) updateProjectStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct{ Status model.ProjectStatus }
	b.decode(r, &req)
	p := b.projects[id]
	p.Status = req.Status
	b.projects[id] = p
	writeEnvelope(w, http.StatusOK, true, "", p)
}

func (b *fakeBackend) deleteProject(w http.ResponseWriter, r *http.Request) {
	delete(b.projects, chi.URLParam(r, "id"))
	writeEnvelope(w, http.StatusOK, true, "Project deleted", nil)
}

func (b *fakeBackend) listMilestones(w http.ResponseWriter, r *http.Request) {
	out := b.milestones[chi.URLParam(r, "id")]
	if out == nil {
		out = []model.Milestone{}
	}
	writeEnvelope(w, http.StatusOK, true, "", out)
}

func (b *fakeBackend) createMilestone(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	var m model.Milestone
	b.decode(r, &m)
	m.ID = b.id("m")
	m.ProjectID = projectID
	b.milestones[projectID] = append(b.milestones[projectID], m)
	writeEnvelope(w, http.StatusOK, true, "", m)
}

func (b *fakeBackend) updateMilestone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var m model.Milestone
	b.decode(r, &m)
	for pid, list := range b.milestones {
		for i := range list {
			if list[i].ID == id {
				m.ID, m.ProjectID, m.CreatedBy = id, pid, list[i].CreatedBy
				list[i] = m
				writeEnvelope(w, http.StatusOK, true, "", m)
				return
			}
		}
	}
	writeEnvelope(w, http.StatusNotFound, false, "Milestone not found", nil)
}

func (b *fakeBackend) deleteMilestone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for pid, list := range b.milestones {
		for i := range list {
			if list[i].ID == id {
				b.milestones[pid] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	writeEnvelope(w, http.StatusOK, true, "", nil)
}

func (b *fakeBackend) listDocuments(w http.ResponseWriter, r *http.Request) {
	out := b.documents[chi.URLParam(r, "id")]
	if out == nil {
		out = []model.Document{}
	}
	writeEnvelope(w, http.StatusOK, true, "", out)
}

func (b *fakeBackend) createDocument(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	var d model.Document
	b.decode(r, &d)
	d.ID = b.id("d")
	d.ProjectID = projectID
	b.documents[projectID] = append(b.documents[projectID], d)
	writeEnvelope(w, http.StatusOK, true, "", d)
}

func (b *fakeBackend) deleteDocument(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, true, "", nil)
}

func (b *fakeBackend) listUsers(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, true, "", b.users)
}

func (b *fakeBackend) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, u := range b.users {
		if u.ID == id {
			writeEnvelope(w, http.StatusOK, true, "", u)
			return
		}
	}
	writeEnvelope(w, http.StatusNotFound, false, "User not found", nil)
}

func (b *fakeBackend) updateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct{ Role model.Role }
	b.decode(r, &req)
	for i := range b.users {
		if b.users[i].ID == id {
			b.users[i].Role = req.Role
			writeEnvelope(w, http.StatusOK, true, "", b.users[i])
			return
		}
	}
	writeEnvelope(w, http.StatusNotFound, false, "User not found", nil)
}

func (b *fakeBackend) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for i := range b.users {
		if b.users[i].ID == id {
			b.users = append(b.users[:i], b.users[i+1:]...)
			break
		}
	}
	writeEnvelope(w, http.StatusOK, true, "User deleted", nil)
}
