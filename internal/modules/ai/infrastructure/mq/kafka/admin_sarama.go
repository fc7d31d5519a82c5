package kafka

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ChatBooks/internal/config"
	"ChatBooks/pkg/zlog"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// 导入事件和导入请求都只需要保留一周
const topicRetention = 7 * 24 * time.Hour

// EnsureTopics 一次连接里检查并创建缺失的主题
func EnsureTopics(kc config.KafkaConfig, topics ...string) error {
	sc, err := newSaramaConfig(kc)
	if err != nil {
		return err
	}
	admin, err := sarama.NewClusterAdmin(kc.Brokers, sc)
	if err != nil {
		return err
	}
	defer admin.Close()

	existing, err := admin.ListTopics()
	if err != nil {
		return err
	}

	detail := topicDetail(kc)
	var errs []error
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := existing[t]; ok {
			continue
		}
		if err := admin.CreateTopic(t, detail, false); err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
			errs = append(errs, fmt.Errorf("create topic %s: %w", t, err))
			continue
		}
		zlog.Info("kafka topic created", zap.String("topic", t), zap.Int32("partitions", detail.NumPartitions))
	}
	return errors.Join(errs...)
}

func topicDetail(kc config.KafkaConfig) *sarama.TopicDetail {
	partitions := kc.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := kc.Replication
	if replication <= 0 {
		replication = 1
	}
	retention := strconv.FormatInt(topicRetention.Milliseconds(), 10)
	return &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: replication,
		ConfigEntries:     map[string]*string{"retention.ms": &retention},
	}
}
