package model

import "strings"

// ProjectStatus は研究プロジェクトの進行状態を表す。
type ProjectStatus string

const (
	StatusPlanning  ProjectStatus = "PLANNING"
	StatusActive    ProjectStatus = "ACTIVE"
	StatusOnHold    ProjectStatus = "ON_HOLD"
	StatusCompleted ProjectStatus = "COMPLETED"
	StatusArchived  ProjectStatus = "ARCHIVED"
)

// AllProjectStatuses は選択肢として表示する順に全ステータスを返す。
func AllProjectStatuses() []ProjectStatus {
	return []ProjectStatus{StatusPlanning, StatusActive, StatusOnHold, StatusCompleted, StatusArchived}
}

// Valid はステータスが定義済みの値かどうかを判定する。
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusPlanning, StatusActive, StatusOnHold, StatusCompleted, StatusArchived:
		return true
	default:
		return false
	}
}

// Label は表示用のラベルを返す（ON_HOLD → "ON HOLD"）。
func (s ProjectStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// ParseProjectStatus は文字列をProjectStatusに変換する。
func ParseProjectStatus(s string) (ProjectStatus, error) {
	st := ProjectStatus(s)
	if !st.Valid() {
		return "", NewInvalidStatusError(s)
	}
	return st, nil
}

// Project は研究プロジェクトを表す。PIが概念上のオーナー。
type Project struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary"`
	Status    ProjectStatus `json:"status"`
	PI        *User         `json:"pi"`
	Tags      string        `json:"tags"`
	StartDate string        `json:"startDate"`
	EndDate   string        `json:"endDate"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

// TagList はカンマ区切りのタグ文字列を分割して返す。空要素は除外する。
func (p Project) TagList() []string {
	if p.Tags == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(p.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// PIName はPIの氏名を返す。PI未設定の場合は空文字列。
func (p Project) PIName() string {
	if p.PI == nil {
		return ""
	}
	return p.PI.FullName
}
