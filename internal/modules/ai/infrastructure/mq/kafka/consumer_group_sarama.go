package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"ChatBooks/internal/config"
	"ChatBooks/internal/modules/ai/infrastructure/mq"
	"ChatBooks/pkg/zlog"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type saramaConsumer struct {
	cg     sarama.ConsumerGroup
	topics []string
}

// NewIngestConsumer 消费 ingestTopic；新消费组从最早的消息开始，远程导入请求不能丢
func NewIngestConsumer(kc config.KafkaConfig) (mq.Consumer, error) {
	topic := strings.TrimSpace(kc.IngestTopic)
	if topic == "" {
		return nil, errors.New("kafka ingest topic is empty")
	}
	group := strings.TrimSpace(kc.ConsumerGroupID)
	if group == "" {
		return nil, errors.New("kafka consumer group id is empty")
	}
	sc, err := newSaramaConfig(kc)
	if err != nil {
		return nil, err
	}
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Group.Rebalance.Timeout = 30 * time.Second
	sc.Consumer.Group.Session.Timeout = 30 * time.Second
	// 一本书的导入可能跑好几分钟
	sc.Consumer.MaxProcessingTime = 10 * time.Minute

	cg, err := sarama.NewConsumerGroup(kc.Brokers, group, sc)
	if err != nil {
		return nil, err
	}
	return &saramaConsumer{cg: cg, topics: []string{topic}}, nil
}

// Run 阻塞到 ctx 结束或消费组关闭；每次 rebalance 后重新 Consume
func (c *saramaConsumer) Run(ctx context.Context, handler mq.Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	h := &consumerGroupHandler{h: handler}
	for {
		if err := c.cg.Consume(ctx, c.topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (c *saramaConsumer) Close() error {
	return c.cg.Close()
}

type consumerGroupHandler struct {
	h mq.Handler
}

func (consumerGroupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	zlog.Info("kafka partitions assigned", zap.Any("claims", sess.Claims()), zap.Int32("generation", sess.GenerationID()))
	return nil
}

func (consumerGroupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	zlog.Info("kafka partitions released", zap.Int32("generation", sess.GenerationID()))
	return nil
}

// ConsumeClaim 处理失败只记日志、不提交位点，不重试
func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for m := range claim.Messages() {
		msg := mq.Message{
			Topic:   m.Topic,
			Key:     m.Key,
			Value:   m.Value,
			Headers: fromRecordHeaders(m.Headers),
		}
		if err := h.h.Handle(sess.Context(), msg); err != nil {
			zlog.Warn("kafka message handle failed",
				zap.String("topic", m.Topic),
				zap.Int32("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
			continue
		}
		sess.MarkMessage(m, "")
	}
	return nil
}
