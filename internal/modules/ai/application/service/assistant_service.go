package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/internal/modules/ai/domain/assistant"
	"ChatBooks/internal/modules/ai/domain/repository"
	"ChatBooks/internal/modules/ai/infrastructure/pipeline"
	"ChatBooks/pkg/xerr"
	"ChatBooks/pkg/zlog"

	"go.uber.org/zap"
)

// BookAsker 召回 + 生成（pipeline.AskPipeline 实现）
type BookAsker interface {
	Ask(ctx context.Context, req pipeline.AskRequest) (*pipeline.AskResult, error)
}

// AssistantService 问答 + 会话内的对话记录和笔记
type AssistantService interface {
	// Ask sessionID 为空时不记录对话（命令行 / MCP）
	Ask(ctx context.Context, sessionID, question string) (*respond.AskRespond, error)
	Messages(ctx context.Context, sessionID string) ([]respond.MessageItem, error)
	AddNote(ctx context.Context, sessionID, pointID, note string) error
	Notes(ctx context.Context, sessionID string) (*respond.NotesRespond, error)
	// Clear 清空对话和笔记
	Clear(ctx context.Context, sessionID string) error
}

type assistantService struct {
	asker    BookAsker
	sessions repository.SessionRepository
	locks    sync.Map // sessionID -> *sync.Mutex
	now      func() time.Time
}

// NewAssistantService 没有配置聊天模型时 asker 返回 xerr.ErrNoChatModel，这里原样透传
func NewAssistantService(asker BookAsker, sessions repository.SessionRepository) AssistantService {
	return &assistantService{asker: asker, sessions: sessions, now: time.Now}
}

func (s *assistantService) lock(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *assistantService) Ask(ctx context.Context, sessionID, question string) (*respond.AskRespond, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, xerr.New(xerr.BadRequest, "question is empty")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" {
		defer s.lock(sessionID)()
		if err := s.ensure(ctx, sessionID); err != nil {
			return nil, err
		}
		if err := s.sessions.AppendMessage(ctx, sessionID, assistant.ChatMessage{
			Role: assistant.RoleUser, Content: question, CreatedAt: s.now(),
		}); err != nil {
			return nil, mapSessionErr(err)
		}
	}

	out, err := s.asker.Ask(ctx, pipeline.AskRequest{Question: question})
	if err != nil {
		zlog.Error("ask failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	if sessionID != "" {
		if err := s.sessions.AppendMessage(ctx, sessionID, assistant.ChatMessage{
			Role: assistant.RoleAssistant, Content: out.Answer, CreatedAt: s.now(),
		}); err != nil {
			return nil, mapSessionErr(err)
		}
	}

	resp := &respond.AskRespond{
		Answer:     out.Answer,
		Sources:    make([]respond.SourceItem, 0, len(out.Sources)),
		Fallback:   out.Fallback,
		DurationMs: out.DurationMs,
	}
	for _, src := range out.Sources {
		resp.Sources = append(resp.Sources, respond.SourceItem{
			Collection: src.Collection,
			ID:         src.ID,
			Source:     src.Source,
			Score:      src.Score,
			Content:    src.Content,
		})
	}
	return resp, nil
}

func (s *assistantService) Messages(ctx context.Context, sessionID string) ([]respond.MessageItem, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return []respond.MessageItem{}, nil
	}
	out := make([]respond.MessageItem, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		out = append(out, respond.MessageItem{
			Role:      m.Role,
			Content:   m.Content,
			IsUser:    m.IsUser(),
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func (s *assistantService) AddNote(ctx context.Context, sessionID, pointID, note string) error {
	pointID = strings.TrimSpace(pointID)
	if pointID == "" {
		return xerr.New(xerr.BadRequest, "point_id is empty")
	}
	defer s.lock(sessionID)()
	if err := s.ensure(ctx, sessionID); err != nil {
		return err
	}
	return mapSessionErr(s.sessions.AddNote(ctx, sessionID, pointID, note))
}

func (s *assistantService) Notes(ctx context.Context, sessionID string) (*respond.NotesRespond, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &respond.NotesRespond{Notes: map[string][]string{}}, nil
	}
	return &respond.NotesRespond{Notes: sess.Notes}, nil
}

func (s *assistantService) Clear(ctx context.Context, sessionID string) error {
	defer s.lock(sessionID)()
	if err := s.ensure(ctx, sessionID); err != nil {
		return err
	}
	return mapSessionErr(s.sessions.Reset(ctx, sessionID))
}

// ensure 会话只在内存里，进程重启后旧 token 对应的会话按需重建
func (s *assistantService) ensure(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess != nil {
		return nil
	}
	if err := s.sessions.Create(ctx, assistant.NewSession(sessionID, s.now())); err != nil {
		// 并发创建时另一方已经建好
		if again, gerr := s.sessions.Get(ctx, sessionID); gerr == nil && again != nil {
			return nil
		}
		return err
	}
	return nil
}

func mapSessionErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrSessionNotFound) {
		return xerr.New(xerr.NotFound, "session not found")
	}
	return err
}
