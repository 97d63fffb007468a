package model

import (
	"errors"
	"fmt"
)

// APIError はUIに表示するローカルエラーの統一フォーマットを表す。
// バックエンドに到達する前に検出したエラー（権限・入力検証）に使う。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeProtectedUser       = "PROTECTED_USER"
	ErrCodeInvalidRole         = "INVALID_ROLE"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidDocumentLink = "INVALID_DOCUMENT_LINK"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeSessionRequired     = "SESSION_REQUIRED"
)

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have permission to perform this action.",
		Category: "auth",
		Action:   "Ask an administrator if you need access.",
	}
}

// NewProtectedUserError は管理者ユーザーを変更・削除しようとした場合のエラーを生成する。
func NewProtectedUserError() *APIError {
	return &APIError{
		Code:     ErrCodeProtectedUser,
		Message:  "Admin users cannot be modified or deleted.",
		Category: "auth",
		Action:   "Choose a non-admin user.",
	}
}

// NewInvalidRoleError は無効なロール指定のエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("Invalid role: %s", role),
		Category: "validation",
		Action:   "Choose one of ADMIN, PI, MEMBER or VIEWER.",
	}
}

// NewInvalidStatusError は無効なプロジェクトステータスのエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("Invalid project status: %s", status),
		Category: "validation",
		Action:   "Choose one of PLANNING, ACTIVE, ON_HOLD, COMPLETED or ARCHIVED.",
	}
}

// NewInvalidInputError は必須項目の未入力などの入力エラーを生成する。
func NewInvalidInputError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  message,
		Category: "validation",
		Action:   "Check the form and try again.",
	}
}

// NewInvalidDocumentLinkError は文書リンクのスキームが不正な場合のエラーを生成する。
func NewInvalidDocumentLinkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDocumentLink,
		Message:  fmt.Sprintf("Invalid document link: %s", reason),
		Category: "validation",
		Action:   "Use an http(s) URL or a plain file path.",
	}
}

// NewNotFoundError は対象が見つからない場合のエラーを生成する。
func NewNotFoundError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found.", what),
		Category: "system",
		Action:   "Reload the page and try again.",
	}
}

// NewSessionRequiredError はログインが必要な操作のエラーを生成する。
func NewSessionRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionRequired,
		Message:  "Please log in to continue.",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// IsAPIErrorCode はerrがcodeを持つAPIErrorかどうかを判定する。
func IsAPIErrorCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
