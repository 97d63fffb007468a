// Package audit はプロジェクト・ユーザー管理の変更イベントを外部へ通知する。
package audit

import (
	"context"
	"log/slog"
	"time"
)

// イベント種別
const (
	EventUserDeleted     = "user.deleted"
	EventUserRoleChanged = "user.role_changed"
	EventProjectCreated  = "project.created"
	EventProjectDeleted  = "project.deleted"
)

// Event は1件の監査イベント。
type Event struct {
	Type       string            `json:"type"`
	ActorID    string            `json:"actorId"`
	ActorRole  string            `json:"actorRole"`
	TargetID   string            `json:"targetId"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Publisher は監査イベントの送信先。
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher はイベントを構造化ログに出力する。AMQPが未設定の場合に使う。
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher はLogPublisherを生成する。
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish はイベントをINFOレベルで記録する。
func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	attrs := []any{
		slog.String("type", e.Type),
		slog.String("actor_id", e.ActorID),
		slog.String("actor_role", e.ActorRole),
		slog.String("target_id", e.TargetID),
	}
	for k, v := range e.Attributes {
		attrs = append(attrs, slog.String(k, v))
	}
	p.logger.InfoContext(ctx, "audit event", attrs...)
	return nil
}

var _ Publisher = (*LogPublisher)(nil)
