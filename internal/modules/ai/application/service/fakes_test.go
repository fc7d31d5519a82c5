package service

import (
	"context"
	"sync"

	"ChatBooks/internal/modules/ai/infrastructure/pipeline"

	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
)

type fakeIngester struct {
	mu     sync.Mutex
	result *pipeline.IngestResult
	err    error
	paths  []string
}

func (f *fakeIngester) Ingest(_ context.Context, req pipeline.IngestRequest) (*pipeline.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, req.Path)
	if f.err != nil {
		return nil, f.err
	}
	out := *f.result
	out.Path = req.Path
	return &out, nil
}

func (f *fakeIngester) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

type fakeAsker struct {
	result    *pipeline.AskResult
	err       error
	questions []string
}

func (f *fakeAsker) Ask(_ context.Context, req pipeline.AskRequest) (*pipeline.AskResult, error) {
	f.questions = append(f.questions, req.Question)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeIndexer struct {
	docs []*schema.Document
	err  error
}

func (f *fakeIndexer) Store(_ context.Context, docs []*schema.Document, _ ...indexer.Option) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, docs...)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

type fakeRecognizer struct {
	text string
	err  error
}

func (f *fakeRecognizer) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	return f.audio, f.err
}
