package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/researchtracker/internal/audit"
	"github.com/hitoshi/researchtracker/internal/model"
)

// ProjectService は /projects 配下のAPI。
type ProjectService struct {
	r     Requester
	audit *auditor
}

// List は全プロジェクトを返す。
func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	if err := s.r.Do(ctx, http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get は指定IDのプロジェクトを返す。
func (s *ProjectService) Get(ctx context.Context, id string) (model.Project, error) {
	var out model.Project
	if err := s.r.Do(ctx, http.MethodGet, projectPath(id), nil, &out); err != nil {
		return model.Project{}, err
	}
	return out, nil
}

// Create はプロジェクトを作成する。
func (s *ProjectService) Create(ctx context.Context, req ProjectRequest) (model.Project, error) {
	if err := req.Validate(); err != nil {
		return model.Project{}, err
	}
	var out model.Project
	if err := s.r.Do(ctx, http.MethodPost, "/projects", req, &out); err != nil {
		return model.Project{}, err
	}
	s.audit.emit(ctx, audit.EventProjectCreated, out.ID, map[string]string{"title": out.Title})
	return out, nil
}

// Update はプロジェクトを更新する。
func (s *ProjectService) Update(ctx context.Context, id string, req ProjectRequest) (model.Project, error) {
	if err := req.Validate(); err != nil {
		return model.Project{}, err
	}
	var out model.Project
	if err := s.r.Do(ctx, http.MethodPut, projectPath(id), req, &out); err != nil {
		return model.Project{}, err
	}
	return out, nil
}

// UpdateStatus はステータスだけを更新する。
func (s *ProjectService) UpdateStatus(ctx context.Context, id string, status model.ProjectStatus) (model.Project, error) {
	if !status.Valid() {
		return model.Project{}, model.NewInvalidStatusError(string(status))
	}
	var out model.Project
	body := map[string]model.ProjectStatus{"status": status}
	if err := s.r.Do(ctx, http.MethodPatch, projectPath(id)+"/status", body, &out); err != nil {
		return model.Project{}, err
	}
	return out, nil
}

// Delete はプロジェクトを削除する。
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if err := s.r.Do(ctx, http.MethodDelete, projectPath(id), nil, nil); err != nil {
		return err
	}
	s.audit.emit(ctx, audit.EventProjectDeleted, id, nil)
	return nil
}

func projectPath(id string) string {
	return "/projects/" + url.PathEscape(id)
}
