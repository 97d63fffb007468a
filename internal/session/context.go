package session

import "context"

type contextKey struct{}

// NewContext はStoreを格納したコンテキストを返す。
func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext はコンテキストからStoreを取得する。
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(contextKey{}).(*Store)
	return s, ok && s != nil
}
