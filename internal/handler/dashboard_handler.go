package handler

import (
	"net/http"

	"github.com/hitoshi/researchtracker/internal/view"
)

// DashboardHandler はダッシュボードと案内ページのハンドラー。
// いずれもバックエンドへの取得は行わず、セッションのロールだけで描画する。
type DashboardHandler struct {
	*pages
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(p *pages) *DashboardHandler {
	return &DashboardHandler{pages: p}
}

// Dashboard はあいさつ、ロールバッジ、ロールに応じたクイックリンクを表示する。
// GET /dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, view.PageDashboard, "Dashboard", "dashboard", nil)
}

// Milestones はマイルストーンの案内ページを表示する。
// GET /milestones
func (h *DashboardHandler) Milestones(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, view.PageMilestones, "Milestones", "projects", nil)
}

// Documents は文書の案内ページを表示する。
// GET /documents
func (h *DashboardHandler) Documents(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, view.PageDocuments, "Documents", "projects", nil)
}
