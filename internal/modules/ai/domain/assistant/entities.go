package assistant

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 会话中的一条对话记录（只存在内存中）
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// IsUser 与页面渲染的左右气泡对应
func (m ChatMessage) IsUser() bool {
	return m.Role == RoleUser
}

// Session 一个浏览器会话：对话记录 + 笔记
//
// 笔记按 point_id 归档，同一个 point 可以追加多条；会话重置时全部清空
type Session struct {
	SessionID string
	Messages  []ChatMessage
	Notes     map[string][]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		SessionID: id,
		Messages:  []ChatMessage{},
		Notes:     map[string][]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset 清空对话和笔记，会话本身保留
func (s *Session) Reset(now time.Time) {
	s.Messages = []ChatMessage{}
	s.Notes = map[string][]string{}
	s.UpdatedAt = now
}
