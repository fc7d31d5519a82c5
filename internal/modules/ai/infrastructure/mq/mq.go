package mq

import (
	"context"
	"encoding/json"
	"time"
)

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type PublishResult struct {
	Partition int32
	Offset    int64
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type Consumer interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}

const (
	HeaderEventType = "event_type"

	EventIngestRequested = "ingest_requested"
	EventBookIngested    = "book_ingested"
)

// IngestRequest 远程导入请求：路径需在 worker 所在机器可读
type IngestRequest struct {
	Path string `json:"path"`
}

// BookIngested 一本书导入完成
type BookIngested struct {
	FileName   string    `json:"file_name"`
	Format     string    `json:"format"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// NewBookIngestedMessage 以文件名作为 key，同一本书的事件落在同一分区
func NewBookIngestedMessage(topic string, ev BookIngested) (Message, error) {
	bs, err := json.Marshal(ev)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic:   topic,
		Key:     []byte(ev.FileName),
		Value:   bs,
		Headers: map[string]string{HeaderEventType: EventBookIngested},
	}, nil
}

func NewIngestRequestMessage(topic string, req IngestRequest) (Message, error) {
	bs, err := json.Marshal(req)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic:   topic,
		Key:     []byte(req.Path),
		Value:   bs,
		Headers: map[string]string{HeaderEventType: EventIngestRequested},
	}, nil
}
