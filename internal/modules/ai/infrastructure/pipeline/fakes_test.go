package pipeline

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	mu     sync.Mutex
	reply  string
	err    error
	inputs [][]*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *fakeChatModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

type fakeRetriever struct {
	docs      []*schema.Document
	err       error
	topK      int
	threshold float64
}

func (r *fakeRetriever) Retrieve(_ context.Context, _ string, opts ...retriever.Option) ([]*schema.Document, error) {
	o := retriever.GetCommonOptions(&retriever.Options{}, opts...)
	if o.TopK != nil {
		r.topK = *o.TopK
	}
	if o.ScoreThreshold != nil {
		r.threshold = *o.ScoreThreshold
	}
	return r.docs, r.err
}

type fakeLoader struct {
	docs []*schema.Document
	err  error
}

func (l *fakeLoader) Load(_ context.Context, path string) ([]*schema.Document, error) {
	if l.err != nil {
		return nil, l.err
	}
	out := make([]*schema.Document, 0, len(l.docs))
	for _, d := range l.docs {
		md := map[string]any{"source": path}
		for k, v := range d.MetaData {
			md[k] = v
		}
		out = append(out, &schema.Document{Content: d.Content, MetaData: md})
	}
	return out, nil
}
