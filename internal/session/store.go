// Package session はクライアントごとのログイン状態（トークンとユーザー）を管理する。
//
// Storeはリクエストごとに生成し、永続化されたtoken/userを読み込んで使う。
// グローバルな状態は持たない。
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/researchtracker/internal/model"
)

// 永続化キー
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Storage はクライアント単位のキーバリュー永続化の抽象。
type Storage interface {
	// Get はkeyの値を返す。存在しない場合はokがfalse。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// SetAll は全エントリをまとめて書き込む。途中で失敗した場合は何も書き込まない。
	SetAll(ctx context.Context, entries map[string]string) error
	// Delete は指定キーを削除する。存在しないキーはエラーにしない。
	Delete(ctx context.Context, keys ...string) error
}

// Rotator はクライアントIDを発行し直す。
// Rotateは新しいIDのStorageと、切り替えをブラウザへ通知するcommitを返す。
// commitを呼ぶまでブラウザ側のIDは変わらない。
type Rotator interface {
	Rotate() (next Storage, commit func())
}

// RestoreResult はRestoreの判定結果。メトリクスのラベルに使う。
type RestoreResult string

const (
	RestoreValid     RestoreResult = "valid"
	RestoreExpired   RestoreResult = "expired"
	RestoreMalformed RestoreResult = "malformed"
	RestoreEmpty     RestoreResult = "empty"
	RestoreError     RestoreResult = "error"
)

// RestoreObserver はRestoreの結果を受け取る。
type RestoreObserver interface {
	RecordSessionRestore(result string)
}

// Store は1クライアントのセッションを保持する。
// tokenとuserは常に組で設定・破棄される。
type Store struct {
	storage  Storage
	now      func() time.Time
	logger   *slog.Logger
	observer RestoreObserver
	rotator  Rotator

	token string
	user  *model.User
}

// Option はStoreの生成オプション。
type Option func(*Store)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger はロガーを指定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithObserver はRestore結果の記録先を指定する。
func WithObserver(o RestoreObserver) Option {
	return func(s *Store) { s.observer = o }
}

// WithRotator はログイン・ログアウト時にクライアントIDを発行し直す。
func WithRotator(r Rotator) Option {
	return func(s *Store) { s.rotator = r }
}

// NewStore は空のStoreを生成する。永続化済みのセッションを読み込むにはRestoreを呼ぶ。
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore は永続化されたtokenとuserを読み込む。
// 両方が存在し、トークンのexpが現在時刻より後で、ユーザー情報が正しい場合のみ
// セッションとして採用する。それ以外は両方を削除し、未ログイン状態にする。
// 不正なデータはエラーとして返さない。
func (s *Store) Restore(ctx context.Context) RestoreResult {
	s.token, s.user = "", nil

	token, hasToken, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return s.record(s.readFailed(err))
	}
	rawUser, hasUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return s.record(s.readFailed(err))
	}

	if !hasToken && !hasUser {
		return s.record(RestoreEmpty)
	}
	if !hasToken || !hasUser || token == "" {
		s.discard(ctx, "incomplete session")
		return s.record(RestoreMalformed)
	}

	valid, err := tokenValidAt(token, s.now())
	if err != nil {
		s.discard(ctx, err.Error())
		return s.record(RestoreMalformed)
	}
	if !valid {
		s.discard(ctx, "token expired")
		return s.record(RestoreExpired)
	}

	user, err := decodeUser(rawUser)
	if err != nil {
		s.discard(ctx, err.Error())
		return s.record(RestoreMalformed)
	}

	s.token, s.user = token, user
	return s.record(RestoreValid)
}

// Login はセッションを永続化し、メモリ上にも設定する。
// Rotatorがある場合は新しいクライアントIDに保存し、成功してから切り替える。
// 永続化に失敗した場合はメモリ上の状態もクライアントIDも変更せずにエラーを返す。
func (s *Store) Login(ctx context.Context, token string, user model.User) error {
	if token == "" {
		return fmt.Errorf("token is empty")
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	target := s.storage
	var commit func()
	if s.rotator != nil {
		target, commit = s.rotator.Rotate()
	}
	if err := target.SetAll(ctx, map[string]string{
		KeyToken: token,
		KeyUser:  string(data),
	}); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if commit != nil {
		s.switchTo(ctx, target, commit)
	}

	u := user
	s.token, s.user = token, &u
	return nil
}

// Logout はメモリと永続化先の両方からセッションを消去する。
// Rotatorがある場合はクライアントIDも発行し直す。
// セッションがなくても成功する。永続化先の削除失敗はログのみ。
func (s *Store) Logout(ctx context.Context) {
	s.token, s.user = "", nil
	if s.rotator != nil {
		next, commit := s.rotator.Rotate()
		s.switchTo(ctx, next, commit)
		return
	}
	if err := s.storage.Delete(ctx, KeyToken, KeyUser); err != nil {
		s.logger.Warn("failed to erase persisted session",
			slog.String("error", err.Error()),
		)
	}
}

// IsAuthenticated はトークンを保持しているかどうかを返す。
func (s *Store) IsAuthenticated() bool {
	return s.token != ""
}

// HasRole はセッションのユーザーロールがrolesに含まれるかを返す。
// セッションがない場合やrolesが空の場合はfalse。
func (s *Store) HasRole(roles ...model.Role) bool {
	if s.user == nil {
		return false
	}
	for _, r := range roles {
		if s.user.Role == r {
			return true
		}
	}
	return false
}

// Token は現在のトークンを返す。未ログインの場合は空文字列。
func (s *Store) Token() string {
	return s.token
}

// User は現在のユーザーを返す。
func (s *Store) User() (model.User, bool) {
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// Role は現在のユーザーロールを返す。未ログインの場合は空。
func (s *Store) Role() model.Role {
	if s.user == nil {
		return ""
	}
	return s.user.Role
}

// UserID は現在のユーザーIDを返す。未ログインの場合は空文字列。
func (s *Store) UserID() string {
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// switchTo は未表示のフラッシュを引き継いでnextへ切り替え、旧IDの状態を消去する。
func (s *Store) switchTo(ctx context.Context, next Storage, commit func()) {
	prev := s.storage
	if raw, ok, err := prev.Get(ctx, KeyFlash); err == nil && ok {
		if err := next.SetAll(ctx, map[string]string{KeyFlash: raw}); err != nil {
			s.logger.Warn("failed to carry over flash", slog.String("error", err.Error()))
		}
	}
	commit()
	s.storage = next
	if err := prev.Delete(ctx, KeyToken, KeyUser, KeyFlash); err != nil {
		s.logger.Warn("failed to erase previous client state",
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) discard(ctx context.Context, reason string) {
	s.logger.Info("discarding persisted session", slog.String("reason", reason))
	if err := s.storage.Delete(ctx, KeyToken, KeyUser); err != nil {
		s.logger.Warn("failed to erase persisted session",
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) readFailed(err error) RestoreResult {
	s.logger.Error("failed to read persisted session", slog.String("error", err.Error()))
	return RestoreError
}

func (s *Store) record(result RestoreResult) RestoreResult {
	if s.observer != nil {
		s.observer.RecordSessionRestore(string(result))
	}
	return result
}

func decodeUser(raw string) (*model.User, error) {
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}
