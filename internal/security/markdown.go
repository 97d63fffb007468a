package security

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer はMarkdownをサニタイズ済みHTMLに変換する。
type MarkdownRenderer struct {
	md        goldmark.Markdown
	sanitizer ContentSanitizerService
}

// NewMarkdownRenderer はGFM（表・取り消し線・自動リンク）を有効にしたレンダラーを生成する。
// 生のHTMLは出力しない。
func NewMarkdownRenderer(sanitizer ContentSanitizerService) *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &MarkdownRenderer{md: md, sanitizer: sanitizer}
}

// Render はsrcをHTMLに変換してサニタイズした結果を返す。
func (r *MarkdownRenderer) Render(src string) (string, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return r.sanitizer.Sanitize(buf.String()), nil
}
