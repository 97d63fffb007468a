// Package service はバックエンドAPIのリソースごとの薄いラッパーを提供する。
//
// 各呼び出しは1回のリクエスト/レスポンスで完結し、再試行やキャッシュは行わない。
// 画面側は変更のたびに一覧を取得し直す。
package service

import (
	"context"
	"log/slog"

	"github.com/hitoshi/researchtracker/internal/apiclient"
	"github.com/hitoshi/researchtracker/internal/audit"
	"github.com/hitoshi/researchtracker/internal/model"
)

// Requester はバックエンドへの1回の呼び出し。*apiclient.Client が実装する。
type Requester = apiclient.Requester

// Services はリクエスト単位で生成するサービス群。
type Services struct {
	Auth       *AuthService
	Projects   *ProjectService
	Milestones *MilestoneService
	Documents  *DocumentService
	Users      *UserService
	Admin      *AdminService
}

// Option はServicesの生成オプション。
type Option func(*auditor)

// WithAudit は変更操作の監査イベントをpubへ送る。actorは操作者。
func WithAudit(pub audit.Publisher, actor model.User) Option {
	return func(a *auditor) {
		a.pub = pub
		a.actor = actor
	}
}

// WithLogger はロガーを指定する。
func WithLogger(logger *slog.Logger) Option {
	return func(a *auditor) { a.logger = logger }
}

// NewServices はrequesterを共有するServicesを生成する。
func NewServices(r Requester, opts ...Option) *Services {
	a := &auditor{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	users := &UserService{r: r}
	return &Services{
		Auth:       &AuthService{r: r},
		Projects:   &ProjectService{r: r, audit: a},
		Milestones: &MilestoneService{r: r},
		Documents:  &DocumentService{r: r},
		Users:      users,
		Admin:      &AdminService{users: users, audit: a},
	}
}

// auditor は監査イベントの送信を担う。送信の失敗は操作の結果に影響させない。
type auditor struct {
	pub    audit.Publisher
	actor  model.User
	logger *slog.Logger
}

func (a *auditor) emit(ctx context.Context, eventType, targetID string, attrs map[string]string) {
	if a == nil || a.pub == nil {
		return
	}
	err := a.pub.Publish(ctx, audit.Event{
		Type:       eventType,
		ActorID:    a.actor.ID,
		ActorRole:  string(a.actor.Role),
		TargetID:   targetID,
		Attributes: attrs,
	})
	if err != nil {
		a.logger.Warn("audit event dropped",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
