package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// KeyFlash はリダイレクト後に1回だけ表示するメッセージの永続化キー。
// セッションのtoken/userとは独立しており、Logoutでは消えない。
const KeyFlash = "flash"

// FlashKind はメッセージの種別。
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash はリダイレクト先で表示するメッセージ。
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// SetFlash はメッセージを保存する。既存のメッセージは上書きする。
func (s *Store) SetFlash(ctx context.Context, kind FlashKind, message string) error {
	data, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return fmt.Errorf("failed to encode flash: %w", err)
	}
	if err := s.storage.SetAll(ctx, map[string]string{KeyFlash: string(data)}); err != nil {
		return fmt.Errorf("failed to persist flash: %w", err)
	}
	return nil
}

// PopFlash は保存されたメッセージを取り出して削除する。
func (s *Store) PopFlash(ctx context.Context) (Flash, bool) {
	raw, ok, err := s.storage.Get(ctx, KeyFlash)
	if err != nil || !ok {
		return Flash{}, false
	}
	if err := s.storage.Delete(ctx, KeyFlash); err != nil {
		s.logger.Warn("failed to delete flash", slog.String("error", err.Error()))
	}
	var f Flash
	if err := json.Unmarshal([]byte(raw), &f); err != nil || f.Message == "" {
		return Flash{}, false
	}
	return f, true
}
