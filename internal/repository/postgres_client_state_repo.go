package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresClientStateRepo はPostgreSQLを使用したクライアント状態リポジトリ。
// client_stateテーブルに (client_id, key) 単位で1行ずつ保存する。
type PostgresClientStateRepo struct {
	db *sql.DB
}

// NewPostgresClientStateRepo はPostgresClientStateRepoを生成する。
func NewPostgresClientStateRepo(db *sql.DB) *PostgresClientStateRepo {
	return &PostgresClientStateRepo{db: db}
}

// Get は指定クライアントのkeyの値を返す。
func (r *PostgresClientStateRepo) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE client_id = $1 AND key = $2`,
		clientID, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get client state: %w", err)
	}
	return value, true, nil
}

// SetAll は複数エントリを同一トランザクションでUPSERTする。
func (r *PostgresClientStateRepo) SetAll(ctx context.Context, clientID string, entries map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO client_state (client_id, key, value, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (client_id, key)
			 DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			clientID, key, value,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert client state %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *PostgresClientStateRepo) Delete(ctx context.Context, clientID string, keys ...string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE client_id = $1 AND key = ANY($2)`,
		clientID, pq.Array(keys),
	)
	if err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ClientStateRepository = (*PostgresClientStateRepo)(nil)
