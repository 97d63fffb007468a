package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/researchtracker/internal/apiclient"
	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/security"
	"github.com/hitoshi/researchtracker/internal/service"
	"github.com/hitoshi/researchtracker/internal/session"
	"github.com/hitoshi/researchtracker/internal/view"
)

// LinkChecker は文書リンクの到達確認を行う。
type LinkChecker interface {
	Check(ctx context.Context, raw string) security.LinkStatus
}

// ProjectHandler はプロジェクトと、その配下のマイルストーン・文書のハンドラー。
type ProjectHandler struct {
	*pages
	services ServiceProvider
	links    LinkChecker
	now      func() time.Time
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(p *pages, services ServiceProvider, links LinkChecker) *ProjectHandler {
	return &ProjectHandler{pages: p, services: services, links: links, now: time.Now}
}

func detailPath(projectID, tab string) string {
	path := projectsPath + "/" + url.PathEscape(projectID)
	if tab != "" && tab != view.TabOverview {
		path += "?tab=" + tab
	}
	return path
}

// List はプロジェクト一覧を表示する。
// GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	data := view.ProjectsData{
		Statuses: model.AllProjectStatuses(),
		Today:    h.now().Format("2006-01-02"),
	}

	projects, err := h.services.ServicesFor(storeFrom(r)).Projects.List(r.Context())
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.renderWithError(w, r, view.PageProjects, "Projects", "projects", data,
			apiclient.UserMessage(err, "Failed to load projects."))
		return
	}

	data.Projects = projects
	h.render(w, r, view.PageProjects, "Projects", "projects", data)
}

// Create はプロジェクトを作成し、詳細画面へ移動する。ステータスの既定値はPLANNING。
// POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	req := service.ProjectRequest{
		Title:     r.PostFormValue("title"),
		Summary:   r.PostFormValue("summary"),
		Status:    model.ProjectStatus(r.PostFormValue("status")),
		Tags:      r.PostFormValue("tags"),
		StartDate: r.PostFormValue("startDate"),
		EndDate:   r.PostFormValue("endDate"),
	}

	project, err := h.services.ServicesFor(storeFrom(r)).Projects.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Failed to create project.", projectsPath)
		return
	}
	h.redirect(w, r, session.FlashSuccess, fmt.Sprintf("Project %q created.", project.Title), detailPath(project.ID, ""))
}

// Detail はプロジェクトの概要・マイルストーン・文書をタブで表示する。
// GET /projects/{id}
func (h *ProjectHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	svc := h.services.ServicesFor(storeFrom(r))

	project, err := svc.Projects.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to load project.", projectsPath)
		return
	}

	data := view.ProjectDetailData{
		Project:  project,
		Statuses: model.AllProjectStatuses(),
		Tab:      view.ParseTab(r.URL.Query().Get("tab")),
	}

	// タブの件数表示のため、マイルストーンと文書は常に取得する
	var loadErr error
	if data.Milestones, err = svc.Milestones.ListByProject(r.Context(), id); err != nil {
		loadErr = err
	}
	if data.Documents, err = svc.Documents.ListByProject(r.Context(), id); err != nil && loadErr == nil {
		loadErr = err
	}
	data.CompletedCount = model.CountCompleted(data.Milestones)

	if loadErr != nil {
		if h.expired(w, r, loadErr) {
			return
		}
		h.renderWithError(w, r, view.PageProjectDetail, project.Title, "projects", data,
			apiclient.UserMessage(loadErr, "Some project data could not be loaded."))
		return
	}
	h.render(w, r, view.PageProjectDetail, project.Title, "projects", data)
}

// Update はプロジェクトを編集する。フォームにない項目（PIなど）は現在の値を引き継ぐ。
// POST /projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	svc := h.services.ServicesFor(storeFrom(r))

	current, err := svc.Projects.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to load project.", detailPath(id, ""))
		return
	}

	req := service.ProjectRequestFrom(current)
	req.Title = r.PostFormValue("title")
	req.Summary = r.PostFormValue("summary")
	req.Tags = r.PostFormValue("tags")
	req.StartDate = r.PostFormValue("startDate")
	req.EndDate = r.PostFormValue("endDate")
	if s := r.PostFormValue("status"); s != "" {
		req.Status = model.ProjectStatus(s)
	}

	if _, err := svc.Projects.Update(r.Context(), id, req); err != nil {
		h.fail(w, r, err, "Failed to update project.", detailPath(id, ""))
		return
	}
	h.redirect(w, r, session.FlashSuccess, "Project updated.", detailPath(id, ""))
}

// UpdateStatus はプロジェクトのステータスだけを変更する。
// POST /projects/{id}/status
func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := model.ParseProjectStatus(r.PostFormValue("status"))
	if err != nil {
		h.fail(w, r, err, "Invalid status.", detailPath(id, ""))
		return
	}

	if _, err := h.services.ServicesFor(storeFrom(r)).Projects.UpdateStatus(r.Context(), id, status); err != nil {
		h.fail(w, r, err, "Failed to update status.", detailPath(id, ""))
		return
	}
	h.redirect(w, r, session.FlashSuccess, "Status changed to "+status.Label()+".", detailPath(id, ""))
}

// Delete はプロジェクトを削除して一覧へ戻る。
// POST /projects/{id}/delete
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.services.ServicesFor(storeFrom(r)).Projects.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "Failed to delete project.", detailPath(id, ""))
		return
	}
	h.redirect(w, r, session.FlashSuccess, "Project deleted.", projectsPath)
}

// CreateMilestone はプロジェクトにマイルストーンを追加する。作成者はログインユーザー。
// POST /projects/{id}/milestones
func (h *ProjectHandler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	store := storeFrom(r)
	back := detailPath(id, view.TabMilestones)

	req := service.MilestoneRequest{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		DueDate:     r.PostFormValue("dueDate"),
		IsCompleted: r.PostFormValue("isCompleted") == "true",
		CreatedByID: store.UserID(),
	}
	if _, err := h.services.ServicesFor(store).Milestones.Create(r.Context(), id, req); err != nil {
		h.fail(w, r, err, "Failed to create milestone.", back)
		return
	}
	h.redirect(w, r, session.FlashSuccess, "Milestone added.", back)
}

// ToggleMilestone はマイルストーンの完了状態を反転する。
// POST /projects/{id}/milestones/{milestoneID}/toggle
func (h *ProjectHandler) ToggleMilestone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	milestoneID := chi.URLParam(r, "milestoneID")
	store := storeFrom(r)
	svc := h.services.ServicesFor(store)
	back := detailPath(id, view.TabMilestones)

	milestones, err := svc.Milestones.ListByProject(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to load milestones.", back)
		return
	}
	var target *model.Milestone
	for i := range milestones {
		if milestones[i].ID == milestoneID {
			target = &milestones[i]
			break
		}
	}
	if target == nil {
		h.fail(w, r, model.NewNotFoundError("Milestone"), "Milestone not found.", back)
		return
	}

	updated, err := svc.Milestones.SetCompleted(r.Context(), *target, !target.IsCompleted, store.UserID())
	if err != nil {
		h.fail(w, r, err, "Failed to update milestone.", back)
		return
	}
	msg := "Milestone reopened."
	if updated.IsCompleted {
		msg = "Milestone completed."
	}
	h.redirect(w, r, session.FlashSuccess, msg, back)
}

// DeleteMilestone はマイルストーンを削除する。
// POST /projects/{id}/milestones/{milestoneID}/delete
func (h *ProjectHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	back := detailPath(chi.URLParam(r, "id"), view.TabMilestones)

	if err := h.services.ServicesFor(storeFrom(r)).Milestones.Delete(r.Context(), chi.URLParam(r, "milestoneID")); err != nil {
		h.fail(w, r, err, "Failed to delete milestone.", back)
		return
	}
	h.redirect(w, r, session.FlashSuccess, "Milestone deleted.", back)
}

// CreateDocument はプロジェクトに文書リンクを追加する。登録者はログインユーザー。
// POST /projects/{id}/documents
func (h *ProjectHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	store := storeFrom(r)
	back := detailPath(id, view.TabDocuments)

	req := service.DocumentRequest{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		URLOrPath:    r.PostFormValue("urlOrPath"),
		UploadedByID: store.UserID(),
	}
	if _, err := h.services.ServicesFor(store).Documents.Create(r.Context(), id, req); err != nil {
		h.fail(w, r, err, "Failed to add document.", back)
		return
	}
	h.redirect(w, r, session.FlashSuccess, "Document added.", back)
}

// DeleteDocument は文書を削除する。
// POST /projects/{id}/documents/{documentID}/delete
func (h *ProjectHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	back := detailPath(chi.URLParam(r, "id"), view.TabDocuments)

	if err := h.services.ServicesFor(storeFrom(r)).Documents.Delete(r.Context(), chi.URLParam(r, "documentID")); err != nil {
		h.fail(w, r, err, "Failed to delete document.", back)
		return
	}
	h.redirect(w, r, session.FlashSuccess, "Document deleted.", back)
}

// CheckDocumentLink は文書のURLに到達できるかを確認し、結果をメッセージで返す。
// POST /projects/{id}/documents/{documentID}/check
func (h *ProjectHandler) CheckDocumentLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	documentID := chi.URLParam(r, "documentID")
	back := detailPath(id, view.TabDocuments)

	documents, err := h.services.ServicesFor(storeFrom(r)).Documents.ListByProject(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to load documents.", back)
		return
	}

	for _, d := range documents {
		if d.ID != documentID {
			continue
		}
		st := h.links.Check(r.Context(), d.URLOrPath)
		switch {
		case !st.Checkable:
			h.redirect(w, r, session.FlashError, fmt.Sprintf("%q cannot be checked: %s.", d.Title, st.Detail), back)
		case st.Reachable:
			h.redirect(w, r, session.FlashSuccess, fmt.Sprintf("%q is reachable (%d %s).", d.Title, st.StatusCode, st.Detail), back)
		case st.StatusCode != 0:
			h.redirect(w, r, session.FlashError, fmt.Sprintf("%q returned %d %s.", d.Title, st.StatusCode, st.Detail), back)
		default:
			h.redirect(w, r, session.FlashError, fmt.Sprintf("%q is %s.", d.Title, st.Detail), back)
		}
		return
	}

	h.fail(w, r, model.NewNotFoundError("Document"), "Document not found.", back)
}
