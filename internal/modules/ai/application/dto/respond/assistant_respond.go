package respond

import "time"

type SourceItem struct {
	Collection string  `json:"collection"`
	ID         string  `json:"id"`
	Source     string  `json:"source,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

type AskRespond struct {
	Answer     string       `json:"answer"`
	Sources    []SourceItem `json:"sources"`
	Fallback   bool         `json:"fallback"`
	DurationMs int64        `json:"duration_ms"`
}

type StoreQARespond struct {
	ID string `json:"id"`
}

type SessionRespond struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type MessageItem struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	CreatedAt time.Time `json:"created_at"`
}

type NotesRespond struct {
	Notes map[string][]string `json:"notes"`
}

type MindMapRespond struct {
	Description string `json:"description"`
}

// VoiceRespond 语音一问一答（websocket 文本帧）
type VoiceRespond struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript,omitempty"`
	Answer     string `json:"answer,omitempty"`
	Error      string `json:"error,omitempty"`
	HasAudio   bool   `json:"has_audio,omitempty"`
}
