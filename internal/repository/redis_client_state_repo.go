package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix はRedisのキー接頭辞のデフォルト値。
const DefaultRedisKeyPrefix = "researchtracker:client:"

// RedisClientStateRepo はRedisのハッシュを使用したクライアント状態リポジトリ。
// 1クライアントを1ハッシュで表し、書き込みのたびにTTLを延長する。
type RedisClientStateRepo struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisClientStateRepo はRedisClientStateRepoを生成する。
// ttlが0以下の場合は期限を設定しない。
func NewRedisClientStateRepo(rdb redis.UniversalClient, ttl time.Duration) *RedisClientStateRepo {
	return &RedisClientStateRepo{
		rdb:    rdb,
		prefix: DefaultRedisKeyPrefix,
		ttl:    ttl,
	}
}

func (r *RedisClientStateRepo) key(clientID string) string {
	return r.prefix + clientID
}

// Get は指定クライアントのkeyの値を返す。
func (r *RedisClientStateRepo) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, r.key(clientID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get client state: %w", err)
	}
	return v, true, nil
}

// SetAll は複数エントリをMULTI/EXECでまとめて書き込む。
func (r *RedisClientStateRepo) SetAll(ctx context.Context, clientID string, entries map[string]string) error {
	k := r.key(clientID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, entries)
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set client state: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *RedisClientStateRepo) Delete(ctx context.Context, clientID string, keys ...string) error {
	if err := r.rdb.HDel(ctx, r.key(clientID), keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ClientStateRepository = (*RedisClientStateRepo)(nil)
