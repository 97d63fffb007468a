package authz

import "github.com/hitoshi/researchtracker/internal/model"

// Permissions はテンプレートから判定関数を呼ぶための、ロールを束縛した値。
// テンプレート内では {{if .Perms.Can "project:create"}} のように使う。
type Permissions struct {
	Role model.Role
}

// For はroleに対するPermissionsを返す。未ログインの場合は空ロールを渡す。
func For(role model.Role) Permissions {
	return Permissions{Role: role}
}

// Can はactionが許可されているかを返す。
func (p Permissions) Can(action string) bool {
	return Authorize(p.Role, Action(action))
}

// CanOnUser はtargetロールのユーザーに対するactionが許可されているかを返す。
func (p Permissions) CanOnUser(action string, target model.Role) bool {
	return AuthorizeTarget(p.Role, Action(action), target)
}
