package repository

import (
	"context"

	"github.com/hitoshi/researchtracker/internal/session"
)

// ClientStorage は1クライアントに限定したsession.Storage。
type ClientStorage struct {
	repo     ClientStateRepository
	clientID string
}

// ForClient はclientIDに限定したストレージを返す。
func ForClient(repo ClientStateRepository, clientID string) *ClientStorage {
	return &ClientStorage{repo: repo, clientID: clientID}
}

// ClientID は対象のクライアントIDを返す。
func (s *ClientStorage) ClientID() string {
	return s.clientID
}

func (s *ClientStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s.clientID == "" {
		return "", false, ErrEmptyClientID
	}
	return s.repo.Get(ctx, s.clientID, key)
}

func (s *ClientStorage) SetAll(ctx context.Context, entries map[string]string) error {
	if s.clientID == "" {
		return ErrEmptyClientID
	}
	if len(entries) == 0 {
		return nil
	}
	return s.repo.SetAll(ctx, s.clientID, entries)
}

func (s *ClientStorage) Delete(ctx context.Context, keys ...string) error {
	if s.clientID == "" {
		return ErrEmptyClientID
	}
	if len(keys) == 0 {
		return nil
	}
	return s.repo.Delete(ctx, s.clientID, keys...)
}

// compile-time interface check
var _ session.Storage = (*ClientStorage)(nil)
