package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ChatBooks/internal/modules/ai/infrastructure/loader"
	"ChatBooks/pkg/zlog"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type askState struct {
	Req      *AskRequest
	BookDocs []*schema.Document
	QADocs   []*schema.Document
	Messages []*schema.Message
	Answer   string
	Fallback bool
	NoModel  bool
	Start    time.Time
	SearchMs int64
	LLMMs    int64
	Err      error
}

func (p *AskPipeline) buildGraph(ctx context.Context) (compose.Runnable[*AskRequest, *AskResult], error) {
	const (
		Prepare       = "Prepare"
		RetrieveBooks = "RetrieveBooks"
		RetrieveQA    = "RetrieveQA"
		BuildPrompt   = "BuildPrompt"
		Generate      = "Generate"
		Finish        = "Finish"
	)

	g := compose.NewGraph[*AskRequest, *AskResult]()

	_ = g.AddLambdaNode(Prepare, compose.InvokableLambdaWithOption(p.prepareNode), compose.WithNodeName(Prepare))
	_ = g.AddLambdaNode(RetrieveBooks, compose.InvokableLambdaWithOption(p.retrieveBooksNode), compose.WithNodeName(RetrieveBooks))
	_ = g.AddLambdaNode(RetrieveQA, compose.InvokableLambdaWithOption(p.retrieveQANode), compose.WithNodeName(RetrieveQA))
	_ = g.AddLambdaNode(BuildPrompt, compose.InvokableLambdaWithOption(p.buildPromptNode), compose.WithNodeName(BuildPrompt))
	_ = g.AddLambdaNode(Generate, compose.InvokableLambdaWithOption(p.generateNode), compose.WithNodeName(Generate))
	_ = g.AddLambdaNode(Finish, compose.InvokableLambdaWithOption(p.finishNode), compose.WithNodeName(Finish))

	_ = g.AddEdge(compose.START, Prepare)
	_ = g.AddEdge(Prepare, RetrieveBooks)
	_ = g.AddEdge(RetrieveBooks, RetrieveQA)
	_ = g.AddEdge(RetrieveQA, BuildPrompt)
	_ = g.AddEdge(BuildPrompt, Generate)
	_ = g.AddEdge(Generate, Finish)
	_ = g.AddEdge(Finish, compose.END)

	return g.Compile(ctx, compose.WithGraphName("BookAskPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

func (p *AskPipeline) prepareNode(_ context.Context, req *AskRequest, _ ...any) (*askState, error) {
	st := &askState{Req: req, Start: time.Now()}
	if req == nil || strings.TrimSpace(req.Question) == "" {
		st.Err = fmt.Errorf("question is required")
	}
	return st, nil
}

func (p *AskPipeline) retrieve(ctx context.Context, r retriever.Retriever, question string) ([]*schema.Document, error) {
	return r.Retrieve(ctx, question, retriever.WithTopK(p.topK), retriever.WithScoreThreshold(p.threshold))
}

func (p *AskPipeline) retrieveBooksNode(ctx context.Context, st *askState, _ ...any) (*askState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	start := time.Now()
	docs, err := p.retrieve(ctx, p.books, st.Req.Question)
	if err != nil {
		st.Err = fmt.Errorf("retrieve books: %w", err)
		return st, nil
	}
	st.BookDocs = docs
	st.SearchMs += time.Since(start).Milliseconds()
	return st, nil
}

func (p *AskPipeline) retrieveQANode(ctx context.Context, st *askState, _ ...any) (*askState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	start := time.Now()
	docs, err := p.retrieve(ctx, p.qa, st.Req.Question)
	if err != nil {
		st.Err = fmt.Errorf("retrieve qa: %w", err)
		return st, nil
	}
	st.QADocs = docs
	st.SearchMs += time.Since(start).Milliseconds()
	return st, nil
}

// buildPromptNode 召回为空时不调用模型，走兜底回答
func (p *AskPipeline) buildPromptNode(ctx context.Context, st *askState, _ ...any) (*askState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	if len(st.BookDocs)+len(st.QADocs) == 0 {
		st.Fallback = true
		return st, nil
	}

	msgs, err := p.template.Format(ctx, map[string]any{
		"context":  joinContents(st.BookDocs, st.QADocs),
		"question": st.Req.Question,
	})
	if err != nil {
		st.Err = fmt.Errorf("format prompt: %w", err)
		return st, nil
	}
	st.Messages = msgs
	return st, nil
}

func (p *AskPipeline) generateNode(ctx context.Context, st *askState, _ ...any) (*askState, error) {
	if st == nil || st.Err != nil || st.Fallback {
		return st, nil
	}
	if p.chatModel == nil {
		st.NoModel = true
		return st, nil
	}
	start := time.Now()
	msg, err := p.chatModel.Generate(ctx, st.Messages)
	if err != nil {
		st.Err = fmt.Errorf("generate: %w", err)
		return st, nil
	}
	if msg != nil {
		st.Answer = msg.Content
	}
	st.LLMMs = time.Since(start).Milliseconds()
	return st, nil
}

func (p *AskPipeline) finishNode(_ context.Context, st *askState, _ ...any) (*AskResult, error) {
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}
	if st.Err != nil {
		zlog.Warn("book ask failed", zap.Error(st.Err))
		return nil, st.Err
	}
	if st.NoModel {
		zlog.Warn("book ask has hits but no chat model",
			zap.Int("book_hits", len(st.BookDocs)),
			zap.Int("qa_hits", len(st.QADocs)))
		return &AskResult{noModel: true}, nil
	}

	res := &AskResult{Fallback: st.Fallback, DurationMs: time.Since(st.Start).Milliseconds()}
	if st.Fallback {
		res.Answer = FallbackAnswer
	} else {
		res.Answer = FormatAnswer(st.Answer)
	}
	res.Sources = append(toSources(CollectionBooks, st.BookDocs), toSources(CollectionQA, st.QADocs)...)

	zlog.Info("book ask done",
		zap.Int("book_hits", len(st.BookDocs)),
		zap.Int("qa_hits", len(st.QADocs)),
		zap.Bool("fallback", st.Fallback),
		zap.Int64("search_ms", st.SearchMs),
		zap.Int64("llm_ms", st.LLMMs))
	return res, nil
}

// FormatAnswer 回答后面附一个空的 References 段
func FormatAnswer(answer string) string {
	return answer + "\n\nReferences:\n"
}

func joinContents(groups ...[]*schema.Document) string {
	var parts []string
	for _, docs := range groups {
		for _, d := range docs {
			if d != nil {
				parts = append(parts, d.Content)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func toSources(collection string, docs []*schema.Document) []AskSource {
	out := make([]AskSource, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		src, _ := d.MetaData[loader.MetaFileName].(string)
		if src == "" {
			src, _ = d.MetaData[loader.MetaSource].(string)
		}
		out = append(out, AskSource{
			Collection: collection,
			ID:         d.ID,
			Source:     src,
			Score:      d.Score(),
			Content:    d.Content,
		})
	}
	return out
}
