package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/internal/modules/ai/infrastructure/loader"
	"ChatBooks/internal/modules/ai/infrastructure/pipeline"
	"ChatBooks/pkg/zlog"

	"go.uber.org/zap"
)

// BookIngester 文件 → 向量库（pipeline.IngestPipeline 实现）
type BookIngester interface {
	Ingest(ctx context.Context, req pipeline.IngestRequest) (*pipeline.IngestResult, error)
}

// MarkerStore 已处理标记（marker.Store 实现）
type MarkerStore interface {
	Exists(sourcePath string) (bool, error)
	Write(sourcePath string) error
}

// IngestListener 一本书写入向量库并落标记之后回调
type IngestListener func(ctx context.Context, res respond.IngestRespond)

type IngestService interface {
	// Ingest 导入单个文件：已有标记跳过，不支持的扩展名静默跳过
	Ingest(ctx context.Context, path string) (*respond.IngestRespond, error)
	// IngestPath 只关心成败（Kafka worker 用）
	IngestPath(ctx context.Context, path string) error
	AddListener(l IngestListener)
}

type ingestService struct {
	// 导入全进程串行
	mu        sync.Mutex
	ingester  BookIngester
	markers   MarkerStore
	listeners []IngestListener
	lmu       sync.RWMutex
}

func NewIngestService(ingester BookIngester, markers MarkerStore) IngestService {
	return &ingestService{ingester: ingester, markers: markers}
}

func (s *ingestService) AddListener(l IngestListener) {
	if l == nil {
		return
	}
	s.lmu.Lock()
	s.listeners = append(s.listeners, l)
	s.lmu.Unlock()
}

func (s *ingestService) IngestPath(ctx context.Context, path string) error {
	_, err := s.Ingest(ctx, path)
	return err
}

func (s *ingestService) Ingest(ctx context.Context, path string) (*respond.IngestRespond, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ingest path is empty")
	}
	if s.ingester == nil || s.markers == nil {
		return nil, errors.New("ingest service not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res := &respond.IngestRespond{Path: path, FileName: filepath.Base(path)}

	done, err := s.markers.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("check marker: %w", err)
	}
	if done {
		res.Status = respond.IngestStatusSkipped
		zlog.Debug("book already ingested", zap.String("path", path))
		return res, nil
	}

	format, ok := loader.FormatOf(path)
	if !ok {
		res.Status = respond.IngestStatusUnsupported
		return res, nil
	}
	res.Format = format

	out, err := s.ingester.Ingest(ctx, pipeline.IngestRequest{Path: path})
	if err != nil {
		if errors.Is(err, loader.ErrUnsupportedFormat) {
			res.Status = respond.IngestStatusUnsupported
			return res, nil
		}
		return nil, err
	}
	res.Documents = out.Documents
	res.Chunks = out.Chunks
	res.DurationMs = time.Since(start).Milliseconds()

	// 没有任何文本就不落标记，换了解析能力之后还能重新导入
	if out.Chunks == 0 {
		res.Status = respond.IngestStatusEmpty
		zlog.Warn("book has no extractable text", zap.String("path", path))
		return res, nil
	}

	if err := s.markers.Write(path); err != nil {
		return nil, fmt.Errorf("write marker: %w", err)
	}
	res.Status = respond.IngestStatusIngested

	s.lmu.RLock()
	ls := append([]IngestListener(nil), s.listeners...)
	s.lmu.RUnlock()
	for _, l := range ls {
		l(ctx, *res)
	}
	return res, nil
}
