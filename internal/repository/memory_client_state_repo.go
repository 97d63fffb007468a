package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryClientStateRepo はプロセス内メモリに保持するクライアント状態リポジトリ。
// 単一インスタンス構成と開発用。再起動で状態は失われる。
type MemoryClientStateRepo struct {
	mu      sync.Mutex
	clients map[string]*memoryClient
	now     func() time.Time
}

type memoryClient struct {
	entries   map[string]string
	updatedAt time.Time
}

// NewMemoryClientStateRepo はMemoryClientStateRepoを生成する。
func NewMemoryClientStateRepo() *MemoryClientStateRepo {
	return &MemoryClientStateRepo{
		clients: make(map[string]*memoryClient),
		now:     time.Now,
	}
}

// Get は指定クライアントのkeyの値を返す。
func (r *MemoryClientStateRepo) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return "", false, nil
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

// SetAll は複数エントリをまとめて書き込む。
func (r *MemoryClientStateRepo) SetAll(ctx context.Context, clientID string, entries map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		c = &memoryClient{entries: make(map[string]string, len(entries))}
		r.clients[clientID] = c
	}
	for k, v := range entries {
		c.entries[k] = v
	}
	c.updatedAt = r.now()
	return nil
}

// Delete は指定キーを削除する。エントリが空になったクライアントは破棄する。
func (r *MemoryClientStateRepo) Delete(ctx context.Context, clientID string, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
	if len(c.entries) == 0 {
		delete(r.clients, clientID)
	}
	return nil
}

// PurgeBefore はcutoffより前に更新されたクライアントの状態を削除し、削除件数を返す。
func (r *MemoryClientStateRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, c := range r.clients {
		if c.updatedAt.Before(cutoff) {
			delete(r.clients, id)
			n++
		}
	}
	return n, nil
}

// compile-time interface check
var _ ClientStateRepository = (*MemoryClientStateRepo)(nil)
