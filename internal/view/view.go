// Package view はサーバー側で描画するHTMLページを提供する。
//
// テンプレートはバイナリに埋め込む。各ページはlayout.htmlと自身のファイルを組にしてパースし、
// "content"テンプレートだけを差し替える。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/researchtracker/internal/authz"
	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページ名
const (
	PageLogin         = "login"
	PageSignup        = "signup"
	PageDashboard     = "dashboard"
	PageProjects      = "projects"
	PageProjectDetail = "project_detail"
	PageMilestones    = "milestones"
	PageDocuments     = "documents"
	PageAdmin         = "admin"
	PageError         = "error"
)

var pageNames = []string{
	PageLogin, PageSignup, PageDashboard, PageProjects, PageProjectDetail,
	PageMilestones, PageDocuments, PageAdmin, PageError,
}

// Page はすべてのページに共通する描画データ。
type Page struct {
	Title     string
	Active    string
	User      model.User
	LoggedIn  bool
	Perms     authz.Permissions
	CSRFToken string
	Flash     *session.Flash
	Data      any
}

// Renderer はページごとにパース済みのテンプレートを保持する。
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// New は埋め込みテンプレートをすべてパースする。
// mdは説明文などのMarkdownをサニタイズ済みHTMLに変換する。
func New(md MarkdownRenderer, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	funcs := newFuncMap(md, logger)

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render はページをバッファに描画してからstatusで書き込む。
// 描画に失敗した場合は途中までのHTMLを送らずに500を返す。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error("unknown page", slog.String("page", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
