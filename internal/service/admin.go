package service

import (
	"context"

	"github.com/hitoshi/researchtracker/internal/audit"
	"github.com/hitoshi/researchtracker/internal/authz"
	"github.com/hitoshi/researchtracker/internal/model"
)

// AdminService は管理画面のユーザー操作。
// すべての操作は通信の前に認可判定を行い、拒否された場合はリクエストを送らない。
type AdminService struct {
	users *UserService
	audit *auditor
}

// RoleStats はロール別のユーザー数。
type RoleStats struct {
	Total   int
	Admins  int
	PIs     int
	Members int
	Viewers int
}

// ListUsers は管理画面を表示できる場合のみユーザー一覧を取得する。
func (s *AdminService) ListUsers(ctx context.Context, actor model.Role) ([]model.User, error) {
	if err := authz.Check(actor, authz.ActionViewAdminPanel); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// DeleteUser は対象ユーザーを削除する。対象がADMINの場合は常に拒否する。
// 対象のロールはバックエンドから取得した値で判定する。
func (s *AdminService) DeleteUser(ctx context.Context, actor model.User, targetID string) error {
	target, err := s.resolveTarget(ctx, actor, authz.ActionDeleteUser, targetID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return err
	}
	s.audit.emit(ctx, audit.EventUserDeleted, target.ID, map[string]string{
		"username": target.Username,
		"role":     string(target.Role),
	})
	return nil
}

// ChangeRole は対象ユーザーのロールを変更する。対象がADMINの場合は常に拒否する。
// 対象のロールはバックエンドから取得した値で判定する。
func (s *AdminService) ChangeRole(ctx context.Context, actor model.User, targetID string, newRole model.Role) (model.User, error) {
	if !newRole.Valid() {
		return model.User{}, model.NewInvalidRoleError(string(newRole))
	}
	target, err := s.resolveTarget(ctx, actor, authz.ActionChangeUserRole, targetID)
	if err != nil {
		return model.User{}, err
	}
	updated, err := s.users.UpdateRole(ctx, target.ID, newRole)
	if err != nil {
		return model.User{}, err
	}
	s.audit.emit(ctx, audit.EventUserRoleChanged, target.ID, map[string]string{
		"old_role": string(target.Role),
		"new_role": string(newRole),
	})
	return updated, nil
}

// resolveTarget は実行者の権限を確認してから対象ユーザーを取得し、対象のロールで判定する。
// 実行者に権限がない場合は取得のリクエストも送らない。
func (s *AdminService) resolveTarget(ctx context.Context, actor model.User, action authz.Action, targetID string) (model.User, error) {
	if err := authz.CheckActor(actor.Role, action); err != nil {
		return model.User{}, err
	}
	if targetID == "" {
		return model.User{}, model.NewNotFoundError("User")
	}
	target, err := s.users.Get(ctx, targetID)
	if err != nil {
		return model.User{}, err
	}
	if target.ID == "" {
		target.ID = targetID
	}
	if err := authz.CheckTarget(actor.Role, action, target.Role); err != nil {
		return model.User{}, err
	}
	return target, nil
}

// Stats はロール別の人数を集計する。
func Stats(users []model.User) RoleStats {
	st := RoleStats{Total: len(users)}
	for _, u := range users {
		switch u.Role {
		case model.RoleAdmin:
			st.Admins++
		case model.RolePI:
			st.PIs++
		case model.RoleMember:
			st.Members++
		case model.RoleViewer:
			st.Viewers++
		}
	}
	return st
}
