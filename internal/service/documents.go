package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/researchtracker/internal/model"
)

// DocumentService は資料のAPI。
type DocumentService struct {
	r Requester
}

// ListByProject はプロジェクトの資料を返す。
func (s *DocumentService) ListByProject(ctx context.Context, projectID string) ([]model.Document, error) {
	var out []model.Document
	if err := s.r.Do(ctx, http.MethodGet, projectPath(projectID)+"/documents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create はプロジェクト配下に資料を登録する。
func (s *DocumentService) Create(ctx context.Context, projectID string, req DocumentRequest) (model.Document, error) {
	if err := req.Validate(); err != nil {
		return model.Document{}, err
	}
	var out model.Document
	if err := s.r.Do(ctx, http.MethodPost, projectPath(projectID)+"/documents", req, &out); err != nil {
		return model.Document{}, err
	}
	return out, nil
}

// Delete は資料を削除する。
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, nil)
}
