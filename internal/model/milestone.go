package model

// Milestone はプロジェクトに属するマイルストーン。
// プロジェクトIDごとに個別に取得する。
type Milestone struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	IsCompleted bool   `json:"isCompleted"`
	CreatedBy   *User  `json:"createdBy"`
}

// Document はプロジェクトに紐づく文書（URLまたはパス）。
type Document struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URLOrPath   string `json:"urlOrPath"`
	UploadedBy  *User  `json:"uploadedBy"`
	UploadedAt  string `json:"uploadedAt"`
}

// CountCompleted は完了済みマイルストーン数を返す。
func CountCompleted(milestones []Milestone) int {
	n := 0
	for _, m := range milestones {
		if m.IsCompleted {
			n++
		}
	}
	return n
}
