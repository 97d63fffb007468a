package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hitoshi/researchtracker/internal/model"
)

// TransportError は応答を得られなかった、2xx以外のステータスだった、
// またはボディを解釈できなかった場合のエラー。
type TransportError struct {
	Method     string
	Path       string
	StatusCode int    // 応答がない場合は0
	Message    string // ボディが封筒形式だった場合のサーバーメッセージ
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError はサーバーが success:false を返した場合のエラー。
type ApplicationError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: request was not successful", e.Method, e.Path)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

// IsUnauthorized はバックエンドが401を返したかどうかを判定する。
func IsUnauthorized(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode == http.StatusUnauthorized
	}
	var ae *ApplicationError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusUnauthorized
	}
	return false
}

// UserMessage は画面に表示するメッセージを返す。
// サーバーのメッセージがあればそれを使い、なければfallbackを返す。
func UserMessage(err error, fallback string) string {
	var ae *ApplicationError
	if errors.As(err, &ae) {
		if ae.Message != "" {
			return ae.Message
		}
		return fallback
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.Message != "" {
			return te.Message
		}
		return fallback
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return fallback
}
