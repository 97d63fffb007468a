// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// Role はユーザーの権限ロールを表す。
// ADMIN, PI, MEMBER, VIEWER の4値のみが有効。
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RolePI     Role = "PI"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// AllRoles は有効なロールを権限の強い順に返す。
func AllRoles() []Role {
	return []Role{RoleAdmin, RolePI, RoleMember, RoleViewer}
}

// Valid はロールが4値のいずれかであるかを判定する。
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePI, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

// ParseRole は文字列をRoleに変換する。大文字小文字は区別する。
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", NewInvalidRoleError(s)
	}
	return r, nil
}

// User はバックエンドが管理するユーザーを表す。
// クライアント側ではロール以外は変更しない。
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Initial は表示用のイニシャル（氏名の先頭1文字）を返す。
func (u User) Initial() string {
	for _, r := range u.FullName {
		return strings.ToUpper(string(r))
	}
	for _, r := range u.Username {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// AuthResponse は /auth/login, /auth/signup のレスポンスデータ。
type AuthResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

// User はレスポンスからセッションに保存するユーザー情報を組み立てる。
func (a AuthResponse) User() User {
	return User{
		ID:       a.UserID,
		Username: a.Username,
		FullName: a.FullName,
		Role:     a.Role,
	}
}

// Validate はセッションに保存できるユーザーかどうかを検証する。
func (u User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id is empty")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role: %q", u.Role)
	}
	return nil
}
