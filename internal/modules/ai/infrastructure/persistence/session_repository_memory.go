package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ChatBooks/internal/modules/ai/domain/assistant"
	"ChatBooks/internal/modules/ai/domain/repository"
)

// memorySessionRepository 会话只保存在进程内存里，重启即丢失
type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*assistant.Session
	now      func() time.Time
}

func NewMemorySessionRepository() repository.SessionRepository {
	return &memorySessionRepository{
		sessions: make(map[string]*assistant.Session),
		now:      time.Now,
	}
}

func (r *memorySessionRepository) Create(_ context.Context, session *assistant.Session) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.SessionID]; ok {
		return fmt.Errorf("session %s already exists", session.SessionID)
	}
	r.sessions[session.SessionID] = cloneSession(session)
	return nil
}

func (r *memorySessionRepository) Get(_ context.Context, sessionID string) (*assistant.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *memorySessionRepository) AppendMessage(_ context.Context, sessionID string, msg assistant.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now()
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = msg.CreatedAt
	return nil
}

func (r *memorySessionRepository) AddNote(_ context.Context, sessionID, pointID, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.Notes[pointID] = append(s.Notes[pointID], note)
	s.UpdatedAt = r.now()
	return nil
}

func (r *memorySessionRepository) Reset(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.Reset(r.now())
	return nil
}

func (r *memorySessionRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func cloneSession(s *assistant.Session) *assistant.Session {
	out := *s
	out.Messages = append([]assistant.ChatMessage(nil), s.Messages...)
	if out.Messages == nil {
		out.Messages = []assistant.ChatMessage{}
	}
	out.Notes = make(map[string][]string, len(s.Notes))
	for k, v := range s.Notes {
		out.Notes[k] = append([]string(nil), v...)
	}
	return &out
}
