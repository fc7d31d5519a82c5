package queue

import (
	"context"
	"errors"
	"strings"

	"ChatBooks/internal/modules/ai/infrastructure/mq"
	"ChatBooks/pkg/zlog"

	"go.uber.org/zap"
)

// OutboxRelay 进程内的事件发件箱：导入完成后先入队，由后台协程发到 Kafka
//
// 入队不阻塞导入流程；队列满时丢弃并记日志。发送失败不重试。
type OutboxRelay struct {
	pub   mq.Publisher
	topic string
	queue chan mq.BookIngested
}

func NewOutboxRelay(pub mq.Publisher, topic string, capacity int) *OutboxRelay {
	if capacity <= 0 {
		capacity = 256
	}
	return &OutboxRelay{
		pub:   pub,
		topic: strings.TrimSpace(topic),
		queue: make(chan mq.BookIngested, capacity),
	}
}

// Enqueue 满了返回 false
func (r *OutboxRelay) Enqueue(ev mq.BookIngested) bool {
	select {
	case r.queue <- ev:
		return true
	default:
		zlog.Warn("outbox relay queue full, event dropped", zap.String("file_name", ev.FileName))
		return false
	}
}

// Run 持续发送直到 ctx 结束；结束前把已入队的事件尽量发完
func (r *OutboxRelay) Run(ctx context.Context) error {
	if r.pub == nil {
		return errors.New("publisher is nil")
	}
	if r.topic == "" {
		return errors.New("outbox topic is empty")
	}
	for {
		select {
		case <-ctx.Done():
			_, _ = r.RunOnce(context.Background())
			return ctx.Err()
		case ev := <-r.queue:
			r.publish(ctx, ev)
		}
	}
}

// RunOnce 发送当前已入队的全部事件，返回成功条数
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	if r.pub == nil {
		return 0, errors.New("publisher is nil")
	}
	published := 0
	for {
		select {
		case ev := <-r.queue:
			if r.publish(ctx, ev) {
				published++
			}
		default:
			return published, nil
		}
	}
}

func (r *OutboxRelay) publish(ctx context.Context, ev mq.BookIngested) bool {
	msg, err := mq.NewBookIngestedMessage(r.topic, ev)
	if err != nil {
		zlog.Warn("outbox relay encode failed", zap.String("file_name", ev.FileName), zap.Error(err))
		return false
	}
	res, err := r.pub.Publish(ctx, msg)
	if err != nil {
		zlog.Warn("outbox relay publish failed",
			zap.String("topic", r.topic),
			zap.String("file_name", ev.FileName),
			zap.String("error", scrubErrMsg(err.Error())),
		)
		return false
	}
	zlog.Debug("outbox relay published",
		zap.String("topic", r.topic),
		zap.String("file_name", ev.FileName),
		zap.Int32("partition", res.Partition),
		zap.Int64("offset", res.Offset),
	)
	return true
}
