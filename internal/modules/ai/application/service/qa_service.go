package service

import (
	"context"
	"errors"
	"fmt"

	"ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/pkg/util"
	"ChatBooks/pkg/zlog"

	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// QASourceName 问答集合文档的 source 元数据
const QASourceName = "qa"

// FormatQA 问答对存成一条文档
func FormatQA(question, answer string) string {
	return fmt.Sprintf("Question: %s\nAnswer: %s", question, answer)
}

// QAService 手动录入问答对，不校验也不去重
type QAService interface {
	StoreQA(ctx context.Context, question, answer string) (*respond.StoreQARespond, error)
}

type qaService struct {
	indexer indexer.Indexer
}

func NewQAService(idx indexer.Indexer) QAService {
	return &qaService{indexer: idx}
}

func (s *qaService) StoreQA(ctx context.Context, question, answer string) (*respond.StoreQARespond, error) {
	if s.indexer == nil {
		return nil, errors.New("qa indexer is nil")
	}
	doc := &schema.Document{
		ID:       util.GenerateUUID(),
		Content:  FormatQA(question, answer),
		MetaData: map[string]any{"source": QASourceName},
	}
	ids, err := s.indexer.Store(ctx, []*schema.Document{doc})
	if err != nil {
		return nil, fmt.Errorf("store qa: %w", err)
	}
	id := doc.ID
	if len(ids) > 0 {
		id = ids[0]
	}
	zlog.Info("qa stored", zap.String("id", id))
	return &respond.StoreQARespond{ID: id}, nil
}
