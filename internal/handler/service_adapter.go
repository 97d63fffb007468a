package handler

import (
	"log/slog"

	"github.com/hitoshi/researchtracker/internal/apiclient"
	"github.com/hitoshi/researchtracker/internal/audit"
	"github.com/hitoshi/researchtracker/internal/service"
	"github.com/hitoshi/researchtracker/internal/session"
)

// ServiceProvider はリクエストのセッションに紐づくServicesを返す。
type ServiceProvider interface {
	ServicesFor(store *session.Store) *service.Services
}

// BackendServices はapiclient.ClientにセッションのトークンとActorを束縛してServicesを生成する。
type BackendServices struct {
	client    *apiclient.Client
	publisher audit.Publisher
	logger    *slog.Logger
}

// NewBackendServices はBackendServicesを生成する。publisherがnilの場合は監査イベントを送らない。
func NewBackendServices(client *apiclient.Client, publisher audit.Publisher, logger *slog.Logger) *BackendServices {
	return &BackendServices{client: client, publisher: publisher, logger: logger}
}

// ServicesFor はstoreのトークンを付与するServicesを返す。
func (b *BackendServices) ServicesFor(store *session.Store) *service.Services {
	var opts []service.Option
	if b.logger != nil {
		opts = append(opts, service.WithLogger(b.logger))
	}
	if b.publisher != nil {
		actor, _ := store.User()
		opts = append(opts, service.WithAudit(b.publisher, actor))
	}
	return service.NewServices(b.client.WithToken(store), opts...)
}

var _ ServiceProvider = (*BackendServices)(nil)
