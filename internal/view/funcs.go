package view

import (
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/security"
)

// MarkdownRenderer はMarkdownをサニタイズ済みHTMLに変換する。
type MarkdownRenderer interface {
	Render(src string) (string, error)
}

const displayDate = "Jan 2, 2006"

func newFuncMap(md MarkdownRenderer, logger *slog.Logger) template.FuncMap {
	return template.FuncMap{
		"markdown": func(src string) template.HTML {
			if strings.TrimSpace(src) == "" {
				return ""
			}
			out, err := md.Render(src)
			if err != nil {
				logger.Warn("failed to render markdown", slog.String("error", err.Error()))
				return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
			}
			// mdの出力はサニタイズ済み
			return template.HTML(out)
		},
		"formatDate":  FormatDate,
		"roleBadge":   roleBadge,
		"statusBadge": statusBadge,
		"isURL": func(raw string) bool {
			kind, err := security.ClassifyDocumentLink(raw)
			return err == nil && kind == security.LinkURL
		},
	}
}

// FormatDate はバックエンドの日付（YYYY-MM-DD）または日時（RFC3339、タイムゾーンなし）を
// 表示用に整形する。解釈できない値はそのまま返す。
func FormatDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayDate)
		}
	}
	return s
}

func roleBadge(role model.Role) template.HTML {
	return badge("role-"+strings.ToLower(string(role)), string(role))
}

func statusBadge(status model.ProjectStatus) template.HTML {
	return badge("status-"+strings.ToLower(string(status)), status.Label())
}

func badge(class, text string) template.HTML {
	return template.HTML(`<span class="badge ` + template.HTMLEscapeString(class) + `">` +
		template.HTMLEscapeString(text) + `</span>`)
}
