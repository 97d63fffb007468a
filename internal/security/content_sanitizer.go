// Package security はユーザー入力を表示・送信する前の安全対策を提供する。
//
// ContentSanitizerはMarkdownから生成したHTMLを許可リストで絞り込み、
// SSRFGuardは資料リンクの検証と到達確認に使うHTTPクライアントを提供する。
package security

import "github.com/microcosm-cc/bluemonday"

// ContentSanitizerService はHTMLのサニタイズ機能のインターフェース。
type ContentSanitizerService interface {
	// Sanitize は許可されたタグと属性だけを残したHTMLを返す。
	// 空文字列には空文字列を返し、同一入力には同一出力を返す。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフ。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はプロジェクト概要・マイルストーン・資料の説明文向けのポリシーで
// ContentSanitizerServiceを生成する。
//   - 見出し、段落、リスト、引用、コード、強調、表、水平線を許可
//   - aのhrefはhttp/https/mailtoの絶対URLのみ。target="_blank"とrel="noopener noreferrer"を付与
//   - imgはsrcとaltのみ
//   - script, iframe, style, on*属性は除去
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")

	return &contentSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズする。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
