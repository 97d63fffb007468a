// Package repository はクライアント状態の永続化を提供する。
//
// クライアント状態はブラウザごとのクライアントIDをキーにした小さなキーバリューで、
// ログインセッション（token/user）とフラッシュメッセージを保持する。
package repository

import (
	"context"
	"errors"
)

// ErrEmptyClientID はクライアントIDが空の場合のエラー。
var ErrEmptyClientID = errors.New("client id is empty")

// ClientStateRepository はクライアント状態の永続化インターフェース。
type ClientStateRepository interface {
	// Get は指定クライアントのkeyの値を返す。存在しない場合はokがfalse。
	Get(ctx context.Context, clientID, key string) (value string, ok bool, err error)

	// SetAll は複数エントリを1回の操作で書き込む。一部だけが書き込まれることはない。
	SetAll(ctx context.Context, clientID string, entries map[string]string) error

	// Delete は指定キーを削除する。存在しないキーはエラーにしない。
	Delete(ctx context.Context, clientID string, keys ...string) error
}
