package event

import (
	"context"
	"time"

	"ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/internal/modules/ai/infrastructure/mq"
	"ChatBooks/pkg/ws"
	"ChatBooks/pkg/zlog"

	"go.uber.org/zap"
)

// EventTypeIngest websocket 事件类型
const EventTypeIngest = "ingest"

// IngestNotice 推给页面的导入通知
type IngestNotice struct {
	Type     string `json:"type"`
	FileName string `json:"file_name"`
	Format   string `json:"format"`
	Chunks   int    `json:"chunks"`
	Status   string `json:"status"`
}

// Outbox 导入完成事件的发件箱（queue.OutboxRelay 实现）
type Outbox interface {
	Enqueue(ev mq.BookIngested) bool
}

// IngestEventHandler 把导入结果广播到 websocket，并投递 Kafka 事件
type IngestEventHandler struct {
	hub    *ws.Hub
	outbox Outbox
	now    func() time.Time
}

// NewIngestEventHandler hub / outbox 都可以为 nil
func NewIngestEventHandler(hub *ws.Hub, outbox Outbox) *IngestEventHandler {
	return &IngestEventHandler{hub: hub, outbox: outbox, now: time.Now}
}

func (h *IngestEventHandler) OnIngested(_ context.Context, res respond.IngestRespond) {
	zlog.Info("book ingested",
		zap.String("file_name", res.FileName),
		zap.String("format", res.Format),
		zap.Int("chunks", res.Chunks),
	)
	if h.hub != nil {
		notice := IngestNotice{
			Type:     EventTypeIngest,
			FileName: res.FileName,
			Format:   res.Format,
			Chunks:   res.Chunks,
			Status:   res.Status,
		}
		if err := h.hub.Broadcast(notice); err != nil {
			zlog.Warn("broadcast ingest notice failed", zap.Error(err))
		}
	}
	if h.outbox != nil {
		h.outbox.Enqueue(mq.BookIngested{
			FileName:   res.FileName,
			Format:     res.Format,
			Chunks:     res.Chunks,
			IngestedAt: h.now().UTC(),
		})
	}
}
