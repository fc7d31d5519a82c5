package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"ChatBooks/internal/modules/ai/infrastructure/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []mq.Message
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg mq.Message) (mq.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return mq.PublishResult{}, p.err
	}
	p.msgs = append(p.msgs, msg)
	return mq.PublishResult{Offset: int64(len(p.msgs))}, nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeIngester struct {
	paths []string
	err   error
}

func (f *fakeIngester) IngestPath(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	return f.err
}

type fakeConsumer struct {
	msgs []mq.Message
	errs []error
}

func (c *fakeConsumer) Run(ctx context.Context, h mq.Handler) error {
	for _, m := range c.msgs {
		c.errs = append(c.errs, h.Handle(ctx, m))
	}
	return nil
}

func (c *fakeConsumer) Close() error { return nil }

func TestIngestConsumerWorker(t *testing.T) {
	good, err := mq.NewIngestRequestMessage("ingest", mq.IngestRequest{Path: " /books/moby.epub "})
	require.NoError(t, err)

	consumer := &fakeConsumer{msgs: []mq.Message{
		good,
		{Topic: "ingest", Value: []byte("not json")},
		{Topic: "ingest", Value: []byte(`{"path":"  "}`)},
		{Topic: "ingest", Value: []byte(`{"path":"/x.pdf"}`), Headers: map[string]string{mq.HeaderEventType: mq.EventBookIngested}},
	}}
	ing := &fakeIngester{}

	require.NoError(t, NewIngestConsumerWorker(consumer, ing).Run(context.Background()))
	assert.Equal(t, []string{"/books/moby.epub"}, ing.paths)
	for _, e := range consumer.errs {
		assert.NoError(t, e)
	}
}

func TestIngestConsumerWorkerSwallowsIngestError(t *testing.T) {
	ing := &fakeIngester{err: errors.New("boom")}
	w := NewIngestConsumerWorker(&fakeConsumer{}, ing)

	err := w.Handle(context.Background(), mq.Message{Value: []byte(`{"path":"/a.mobi"}`)})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/a.mobi"}, ing.paths)
}

func TestIngestConsumerWorkerRequiresDeps(t *testing.T) {
	assert.Error(t, NewIngestConsumerWorker(nil, &fakeIngester{}).Run(context.Background()))
	assert.Error(t, NewIngestConsumerWorker(&fakeConsumer{}, nil).Run(context.Background()))
}

func TestOutboxRelayRunOnce(t *testing.T) {
	pub := &fakePublisher{}
	r := NewOutboxRelay(pub, "ingested", 4)

	assert.True(t, r.Enqueue(mq.BookIngested{FileName: "a.pdf", Chunks: 3}))
	assert.True(t, r.Enqueue(mq.BookIngested{FileName: "b.epub", Chunks: 5}))

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "ingested", pub.msgs[0].Topic)
	assert.Equal(t, "a.pdf", string(pub.msgs[0].Key))

	var ev mq.BookIngested
	require.NoError(t, json.Unmarshal(pub.msgs[1].Value, &ev))
	assert.Equal(t, 5, ev.Chunks)
}

func TestOutboxRelayDropsWhenFull(t *testing.T) {
	r := NewOutboxRelay(&fakePublisher{}, "t", 1)
	assert.True(t, r.Enqueue(mq.BookIngested{FileName: "a"}))
	assert.False(t, r.Enqueue(mq.BookIngested{FileName: "b"}))
}

func TestOutboxRelayPublishFailure(t *testing.T) {
	r := NewOutboxRelay(&fakePublisher{err: errors.New("down")}, "t", 2)
	r.Enqueue(mq.BookIngested{FileName: "a"})
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOutboxRelayRunDrainsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	r := NewOutboxRelay(pub, "t", 2)
	r.Enqueue(mq.BookIngested{FileName: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.msgs, 1)
}

func TestScrubErrMsg(t *testing.T) {
	assert.Equal(t, "redacted", scrubErrMsg("bad api_key=sk-123"))
	assert.Equal(t, 255, len(scrubErrMsg(strings.Repeat("x", 300))))
	assert.Equal(t, "", scrubErrMsg("  "))
}
