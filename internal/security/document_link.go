package security

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/hitoshi/researchtracker/internal/model"
)

// maxDocumentLinkLength は資料リンクの最大長。
const maxDocumentLinkLength = 2048

// LinkKind は資料リンクの種別。
type LinkKind string

const (
	LinkURL  LinkKind = "url"  // http/httpsのURL
	LinkPath LinkKind = "path" // 共有ストレージ上のパスなど
)

// ClassifyDocumentLink は資料のurlOrPathを検証し、種別を返す。
// スキームを持つ値はhttp/httpsかつホストありのものだけを受け付ける。
// スキームを持たない値はパスとして扱う。Windowsのドライブ文字 (C:\...) もパス。
func ClassifyDocumentLink(raw string) (LinkKind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", model.NewInvalidDocumentLinkError("link is required")
	}
	if len(raw) > maxDocumentLinkLength {
		return "", model.NewInvalidDocumentLinkError("link is too long")
	}
	if strings.IndexFunc(raw, unicode.IsControl) >= 0 {
		return "", model.NewInvalidDocumentLinkError("link contains control characters")
	}

	if isDrivePath(raw) {
		return LinkPath, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", model.NewInvalidDocumentLinkError("link cannot be parsed")
	}
	if u.Scheme == "" {
		return LinkPath, nil
	}
	if !isAllowedScheme(u.Scheme) {
		return "", model.NewInvalidDocumentLinkError("only http and https links are allowed")
	}
	if u.Host == "" {
		return "", model.NewInvalidDocumentLinkError("link has no host")
	}
	return LinkURL, nil
}

func isDrivePath(s string) bool {
	if len(s) < 3 || s[1] != ':' {
		return false
	}
	c := s[0]
	return ((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) && (s[2] == '\\' || s[2] == '/')
}
