package repository

import (
	"context"
	"errors"

	"ChatBooks/internal/modules/ai/domain/assistant"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository 会话仓储（对话记录 + 笔记）
type SessionRepository interface {
	Create(ctx context.Context, session *assistant.Session) error
	// Get 不存在返回 nil, nil
	Get(ctx context.Context, sessionID string) (*assistant.Session, error)
	AppendMessage(ctx context.Context, sessionID string, msg assistant.ChatMessage) error
	AddNote(ctx context.Context, sessionID, pointID, note string) error
	Reset(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}
