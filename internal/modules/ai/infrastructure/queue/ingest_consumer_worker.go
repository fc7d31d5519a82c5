package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ChatBooks/internal/modules/ai/infrastructure/mq"
	"ChatBooks/pkg/zlog"

	"go.uber.org/zap"
)

// PathIngester 按路径导入一本书（由 application 层的导入服务实现）
type PathIngester interface {
	IngestPath(ctx context.Context, path string) error
}

// IngestConsumerWorker 消费远程导入请求 {"path": "..."}
//
// 失败只记日志并提交位点，不重试。
type IngestConsumerWorker struct {
	consumer mq.Consumer
	ingester PathIngester
}

func NewIngestConsumerWorker(consumer mq.Consumer, ingester PathIngester) *IngestConsumerWorker {
	return &IngestConsumerWorker{consumer: consumer, ingester: ingester}
}

func (w *IngestConsumerWorker) Run(ctx context.Context) error {
	if w == nil || w.consumer == nil {
		return errors.New("consumer is nil")
	}
	if w.ingester == nil {
		return errors.New("ingester is nil")
	}
	return w.consumer.Run(ctx, w)
}

func (w *IngestConsumerWorker) Handle(ctx context.Context, msg mq.Message) error {
	if t := strings.TrimSpace(msg.Headers[mq.HeaderEventType]); t != "" && t != mq.EventIngestRequested {
		return nil
	}

	var req mq.IngestRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		zlog.Warn("ingest consumer invalid payload", zap.String("topic", msg.Topic), zap.Error(err))
		return nil
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		zlog.Warn("ingest consumer empty path", zap.String("topic", msg.Topic))
		return nil
	}

	start := time.Now()
	if err := w.ingester.IngestPath(ctx, path); err != nil {
		zlog.Warn("ingest consumer ingest failed",
			zap.String("path", path),
			zap.String("error", scrubErrMsg(err.Error())),
		)
		return nil
	}
	zlog.Info("ingest consumer done",
		zap.String("path", path),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// scrubErrMsg 去掉可能带密钥的错误信息，并截断
func scrubErrMsg(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "api_key") || strings.Contains(low, "apikey") || strings.Contains(low, "secret") || strings.Contains(s, "sk-") {
		return "redacted"
	}
	if len(s) > 255 {
		return s[:255]
	}
	return s
}
