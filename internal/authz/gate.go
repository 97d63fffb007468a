// Package authz はロールと操作の組から許可・拒否を決める認可ゲートを提供する。
//
// 画面に表示する操作ボタンやルートの可否はすべてこのパッケージで判定する。
// I/Oを持たない純粋関数のみで構成され、ネットワークやストレージなしでテストできる。
//
// この判定はUI上の制御であり、バックエンド側で同じチェックが行われることを前提にしない。
// セキュリティ境界として扱わないこと。
package authz

import "github.com/hitoshi/researchtracker/internal/model"

// Action は認可の対象となる操作を表す。
type Action string

const (
	ActionViewDashboard  Action = "dashboard:view"
	ActionViewProjects   Action = "projects:view"
	ActionViewMilestones Action = "milestones:view"
	ActionViewDocuments  Action = "documents:view"
	ActionViewAdminPanel Action = "admin:view"

	ActionCreateProject Action = "project:create"
	ActionEditProject   Action = "project:edit"
	ActionDeleteProject Action = "project:delete"

	ActionCreateMilestone Action = "milestone:create"
	ActionUpdateMilestone Action = "milestone:update"
	ActionDeleteMilestone Action = "milestone:delete"

	ActionCreateDocument Action = "document:create"
	ActionDeleteDocument Action = "document:delete"

	ActionChangeUserRole Action = "user:change-role"
	ActionDeleteUser     Action = "user:delete"

	ActionViewQuickLinks Action = "dashboard:quick-links"
)

var (
	everyone    = roleSet(model.RoleAdmin, model.RolePI, model.RoleMember, model.RoleViewer)
	contributor = roleSet(model.RoleAdmin, model.RolePI, model.RoleMember)
	manager     = roleSet(model.RoleAdmin, model.RolePI)
	adminOnly   = roleSet(model.RoleAdmin)
)

// matrix は操作ごとに許可されるロールの表。
var matrix = map[Action]map[model.Role]bool{
	ActionViewDashboard:  everyone,
	ActionViewProjects:   everyone,
	ActionViewMilestones: everyone,
	ActionViewDocuments:  everyone,
	ActionViewAdminPanel: adminOnly,

	ActionCreateProject: manager,
	ActionEditProject:   manager,
	ActionDeleteProject: adminOnly,

	ActionCreateMilestone: manager,
	ActionUpdateMilestone: manager,
	ActionDeleteMilestone: manager,

	ActionCreateDocument: contributor,
	ActionDeleteDocument: manager,

	ActionChangeUserRole: adminOnly,
	ActionDeleteUser:     adminOnly,

	ActionViewQuickLinks: contributor,
}

// userActions は対象ユーザーのロールが必要な操作。
var userActions = map[Action]bool{
	ActionChangeUserRole: true,
	ActionDeleteUser:     true,
}

func roleSet(roles ...model.Role) map[model.Role]bool {
	m := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		m[r] = true
	}
	return m
}

// Authorize はroleがactionを実行できるかを返す。
// 対象ユーザーを必要とする操作（ロール変更・ユーザー削除）は常に拒否する。
// それらにはAuthorizeTargetを使う。
func Authorize(role model.Role, action Action) bool {
	if userActions[action] {
		return false
	}
	return allowed(role, action)
}

// AuthorizeTarget は対象ユーザーのロールを伴う操作の可否を返す。
// 対象がADMINの場合は、実行者のロールに関係なく表を参照する前に拒否する。
func AuthorizeTarget(role model.Role, action Action, target model.Role) bool {
	if target == model.RoleAdmin || !target.Valid() {
		return false
	}
	return allowed(role, action)
}

// Check はAuthorizeの結果をエラー値で返す。許可された場合はnil。
func Check(role model.Role, action Action) error {
	if Authorize(role, action) {
		return nil
	}
	return model.NewForbiddenError()
}

// CheckTarget はAuthorizeTargetの結果をエラー値で返す。
// 対象がADMINの場合はPROTECTED_USERエラーを返す。
func CheckTarget(role model.Role, action Action, target model.Role) error {
	if target == model.RoleAdmin {
		return model.NewProtectedUserError()
	}
	if AuthorizeTarget(role, action, target) {
		return nil
	}
	return model.NewForbiddenError()
}

// CheckActor は対象ユーザーのロールを問わず、実行者のロールにactionの権限があるかを返す。
// 対象を取得する前の事前判定に使い、最終判定はCheckTargetで行う。
func CheckActor(role model.Role, action Action) error {
	if allowed(role, action) {
		return nil
	}
	return model.NewForbiddenError()
}

func allowed(role model.Role, action Action) bool {
	if !role.Valid() {
		return false
	}
	return matrix[action][role]
}

// Actions は定義済みの全操作を返す。
func Actions() []Action {
	return []Action{
		ActionViewDashboard, ActionViewProjects, ActionViewMilestones, ActionViewDocuments,
		ActionViewAdminPanel,
		ActionCreateProject, ActionEditProject, ActionDeleteProject,
		ActionCreateMilestone, ActionUpdateMilestone, ActionDeleteMilestone,
		ActionCreateDocument, ActionDeleteDocument,
		ActionChangeUserRole, ActionDeleteUser,
		ActionViewQuickLinks,
	}
}
