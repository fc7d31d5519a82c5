package service

import (
	"context"
	"time"

	"ChatBooks/internal/config"
	"ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/internal/modules/ai/domain/assistant"
	"ChatBooks/internal/modules/ai/domain/repository"
	"ChatBooks/pkg/util"
	"ChatBooks/pkg/util/myjwt"
)

// SessionService 为浏览器签发会话 token
type SessionService interface {
	Create(ctx context.Context) (*respond.SessionRespond, error)
}

type sessionService struct {
	conf     config.JwtConfig
	sessions repository.SessionRepository
}

func NewSessionService(conf config.JwtConfig, sessions repository.SessionRepository) SessionService {
	return &sessionService{conf: conf, sessions: sessions}
}

func (s *sessionService) Create(ctx context.Context) (*respond.SessionRespond, error) {
	id := util.GenerateID("S")
	if err := s.sessions.Create(ctx, assistant.NewSession(id, time.Now())); err != nil {
		return nil, err
	}
	token, err := myjwt.GenerateToken(s.conf, id)
	if err != nil {
		_ = s.sessions.Delete(ctx, id)
		return nil, err
	}
	return &respond.SessionRespond{SessionID: id, Token: token}, nil
}
