package service

import (
	"strings"
	"time"

	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/security"
)

// dateLayout はバックエンドのLocalDate形式。
const dateLayout = "2006-01-02"

// SignupRequest は新規登録の入力。ロールはサーバー側でMEMBERになる。
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// Validate は必須項目を検証する。
func (r *SignupRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.FullName = strings.TrimSpace(r.FullName)
	switch {
	case r.Username == "":
		return model.NewInvalidInputError("Username is required.")
	case r.Password == "":
		return model.NewInvalidInputError("Password is required.")
	case r.FullName == "":
		return model.NewInvalidInputError("Full name is required.")
	}
	return nil
}

// LoginRequest はログインの入力。
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate は必須項目を検証する。
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return model.NewInvalidInputError("Username and password are required.")
	}
	return nil
}

// ProjectRequest はプロジェクトの作成・更新の入力。
// PIIDが空の場合はサーバーがログインユーザーをPIにする。
type ProjectRequest struct {
	Title     string              `json:"title"`
	Summary   string              `json:"summary"`
	Status    model.ProjectStatus `json:"status"`
	PIID      string              `json:"piId,omitempty"`
	Tags      string              `json:"tags"`
	StartDate string              `json:"startDate"`
	EndDate   string              `json:"endDate,omitempty"`
}

// Validate はタイトル・ステータス・日付を検証する。ステータス未指定はPLANNING。
func (r *ProjectRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return model.NewInvalidInputError("Title is required.")
	}
	if r.Status == "" {
		r.Status = model.StatusPlanning
	}
	if !r.Status.Valid() {
		return model.NewInvalidStatusError(string(r.Status))
	}
	start, err := parseDate(r.StartDate, "Start date")
	if err != nil {
		return err
	}
	if start.IsZero() {
		return model.NewInvalidInputError("Start date is required.")
	}
	if r.EndDate != "" {
		end, err := parseDate(r.EndDate, "End date")
		if err != nil {
			return err
		}
		if end.Before(start) {
			return model.NewInvalidInputError("End date must not be before the start date.")
		}
	}
	r.Tags = normalizeTags(r.Tags)
	return nil
}

// ProjectRequestFrom は既存プロジェクトから更新用の入力を作る。
func ProjectRequestFrom(p model.Project) ProjectRequest {
	req := ProjectRequest{
		Title:     p.Title,
		Summary:   p.Summary,
		Status:    p.Status,
		Tags:      p.Tags,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
	}
	if p.PI != nil {
		req.PIID = p.PI.ID
	}
	return req
}

// MilestoneRequest はマイルストーンの作成・更新の入力。
type MilestoneRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	IsCompleted bool   `json:"isCompleted"`
	CreatedByID string `json:"createdById"`
}

// Validate はタイトル・期日・作成者を検証する。
func (r *MilestoneRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return model.NewInvalidInputError("Title is required.")
	}
	due, err := parseDate(r.DueDate, "Due date")
	if err != nil {
		return err
	}
	if due.IsZero() {
		return model.NewInvalidInputError("Due date is required.")
	}
	if r.CreatedByID == "" {
		return model.NewSessionRequiredError()
	}
	return nil
}

// MilestoneRequestFrom は既存マイルストーンから更新用の入力を作る。
// 作成者が不明な場合はfallbackCreatorを使う。
func MilestoneRequestFrom(m model.Milestone, fallbackCreator string) MilestoneRequest {
	req := MilestoneRequest{
		Title:       m.Title,
		Description: m.Description,
		DueDate:     m.DueDate,
		IsCompleted: m.IsCompleted,
		CreatedByID: fallbackCreator,
	}
	if m.CreatedBy != nil && m.CreatedBy.ID != "" {
		req.CreatedByID = m.CreatedBy.ID
	}
	return req
}

// DocumentRequest は資料の登録の入力。
type DocumentRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	URLOrPath    string `json:"urlOrPath"`
	UploadedByID string `json:"uploadedById"`
}

// Validate はタイトル・リンク・登録者を検証する。
func (r *DocumentRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.URLOrPath = strings.TrimSpace(r.URLOrPath)
	if r.Title == "" {
		return model.NewInvalidInputError("Title is required.")
	}
	if _, err := security.ClassifyDocumentLink(r.URLOrPath); err != nil {
		return err
	}
	if r.UploadedByID == "" {
		return model.NewSessionRequiredError()
	}
	return nil
}

func parseDate(s, field string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, model.NewInvalidInputError(field + " must be a date (YYYY-MM-DD).")
	}
	return t, nil
}

// normalizeTags はカンマ区切りのタグを整形する。空要素は除く。
func normalizeTags(s string) string {
	return strings.Join(model.Project{Tags: s}.TagList(), ", ")
}
