package view

import (
	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/service"
)

// プロジェクト詳細のタブ
const (
	TabOverview   = "overview"
	TabMilestones = "milestones"
	TabDocuments  = "documents"
)

// ParseTab はクエリ文字列のタブ名を検証する。不明な値はoverviewにする。
func ParseTab(s string) string {
	switch s {
	case TabMilestones, TabDocuments:
		return s
	default:
		return TabOverview
	}
}

// AuthFormData はログイン・サインアップ画面で入力を保持するためのデータ。
// パスワードは保持しない。
type AuthFormData struct {
	Username string
	FullName string
}

// ProjectsData はプロジェクト一覧のデータ。
type ProjectsData struct {
	Projects []model.Project
	Statuses []model.ProjectStatus
	Today    string
}

// ProjectDetailData はプロジェクト詳細のデータ。
type ProjectDetailData struct {
	Project        model.Project
	Milestones     []model.Milestone
	Documents      []model.Document
	CompletedCount int
	Statuses       []model.ProjectStatus
	Tab            string
}

// AdminData は管理画面のデータ。
type AdminData struct {
	Users []model.User
	Stats service.RoleStats
	Roles []model.Role
}

// ErrorData はエラーページのデータ。
type ErrorData struct {
	Heading string
	Message string
}
