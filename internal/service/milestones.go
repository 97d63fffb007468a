package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/researchtracker/internal/model"
)

// MilestoneService はマイルストーンのAPI。
type MilestoneService struct {
	r Requester
}

// ListByProject はプロジェクトのマイルストーンを返す。
func (s *MilestoneService) ListByProject(ctx context.Context, projectID string) ([]model.Milestone, error) {
	var out []model.Milestone
	if err := s.r.Do(ctx, http.MethodGet, projectPath(projectID)+"/milestones", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create はプロジェクト配下にマイルストーンを作成する。
func (s *MilestoneService) Create(ctx context.Context, projectID string, req MilestoneRequest) (model.Milestone, error) {
	if err := req.Validate(); err != nil {
		return model.Milestone{}, err
	}
	var out model.Milestone
	if err := s.r.Do(ctx, http.MethodPost, projectPath(projectID)+"/milestones", req, &out); err != nil {
		return model.Milestone{}, err
	}
	return out, nil
}

// Update はマイルストーンを更新する。
func (s *MilestoneService) Update(ctx context.Context, id string, req MilestoneRequest) (model.Milestone, error) {
	if err := req.Validate(); err != nil {
		return model.Milestone{}, err
	}
	var out model.Milestone
	if err := s.r.Do(ctx, http.MethodPut, milestonePath(id), req, &out); err != nil {
		return model.Milestone{}, err
	}
	return out, nil
}

// SetCompleted は既存の内容を保ったまま完了状態だけを変えて更新する。
func (s *MilestoneService) SetCompleted(ctx context.Context, m model.Milestone, completed bool, actorID string) (model.Milestone, error) {
	req := MilestoneRequestFrom(m, actorID)
	req.IsCompleted = completed
	return s.Update(ctx, m.ID, req)
}

// Delete はマイルストーンを削除する。
func (s *MilestoneService) Delete(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, milestonePath(id), nil, nil)
}

func milestonePath(id string) string {
	return "/milestones/" + url.PathEscape(id)
}
