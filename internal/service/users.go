package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/researchtracker/internal/model"
)

// UserService は /users 配下のAPI。権限の確認は呼び出し側（AdminService）で行う。
type UserService struct {
	r Requester
}

// List は全ユーザーを返す。
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := s.r.Do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get は指定IDのユーザーを返す。
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	var out model.User
	if err := s.r.Do(ctx, http.MethodGet, userPath(id), nil, &out); err != nil {
		return model.User{}, err
	}
	return out, nil
}

// Delete はユーザーを削除する。
func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, userPath(id), nil, nil)
}

// UpdateRole はユーザーのロールを変更する。
func (s *UserService) UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	if !role.Valid() {
		return model.User{}, model.NewInvalidRoleError(string(role))
	}
	var out model.User
	body := map[string]model.Role{"role": role}
	if err := s.r.Do(ctx, http.MethodPut, userPath(id)+"/role", body, &out); err != nil {
		return model.User{}, err
	}
	return out, nil
}

func userPath(id string) string {
	return "/users/" + url.PathEscape(id)
}
