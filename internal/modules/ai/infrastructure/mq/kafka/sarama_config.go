package kafka

import (
	"errors"
	"sort"
	"strings"
	"time"

	"ChatBooks/internal/config"

	"github.com/IBM/sarama"
)

var errNoBrokers = errors.New("kafka brokers is empty")

// newSaramaConfig 发布、消费、建主题共用的基础配置
func newSaramaConfig(kc config.KafkaConfig) (*sarama.Config, error) {
	if len(kc.Brokers) == 0 {
		return nil, errNoBrokers
	}
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = strings.TrimSpace(kc.ClientID)
	if sc.ClientID == "" {
		sc.ClientID = "chatbooks"
	}
	sc.Net.DialTimeout = 10 * time.Second
	return sc, nil
}

// toRecordHeaders 按 key 排序，空 key 丢弃
func toRecordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		out = append(out, sarama.RecordHeader{Key: []byte(strings.TrimSpace(k)), Value: []byte(headers[k])})
	}
	return out
}

func fromRecordHeaders(headers []*sarama.RecordHeader) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		if h == nil || len(h.Key) == 0 {
			continue
		}
		out[string(h.Key)] = string(h.Value)
	}
	return out
}
