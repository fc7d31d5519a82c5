package pipeline

import (
	"context"
	"fmt"

	"ChatBooks/pkg/xerr"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const (
	SystemPrompt = "You are a knowledgeable assistant who can answer questions and provide clarifications on the books uploaded by the user. " +
		"You help users ask the right questions to understand more, provide additional references to build more knowledge, " +
		"and offer insights across different books. Your responses should be informative, insightful, and helpful."
	HumanPrompt = "Here are the document pieces: {context}\nQuestion: {question}"

	// FallbackAnswer 两个集合都没有召回任何内容时直接返回
	FallbackAnswer = "Please, add a document first."

	CollectionBooks = "books"
	CollectionQA    = "qa"
)

type AskRequest struct {
	Question string
}

// AskSource 一条召回的片段
type AskSource struct {
	Collection string  `json:"collection"`
	ID         string  `json:"id"`
	Source     string  `json:"source,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

type AskResult struct {
	Answer     string      `json:"answer"`
	Sources    []AskSource `json:"sources"`
	Fallback   bool        `json:"fallback"`
	DurationMs int64       `json:"duration_ms"`

	noModel bool
}

// AskPipeline 书籍集合 + 问答集合各召回 topK，拼接后套模板交给聊天模型
//
// chatModel 可以为 nil：召回为空时照常返回兜底回答，有召回时返回 xerr.ErrNoChatModel。
type AskPipeline struct {
	books     retriever.Retriever
	qa        retriever.Retriever
	template  prompt.ChatTemplate
	chatModel model.BaseChatModel
	topK      int
	threshold float64
	r         compose.Runnable[*AskRequest, *AskResult]
}

func NewChatTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(SystemPrompt),
		schema.UserMessage(HumanPrompt),
	)
}

func NewAskPipeline(books, qa retriever.Retriever, chatModel model.BaseChatModel, topK int, threshold float64) (*AskPipeline, error) {
	if books == nil || qa == nil {
		return nil, fmt.Errorf("ask pipeline missing retriever")
	}
	if topK <= 0 {
		topK = 10
	}
	p := &AskPipeline{
		books:     books,
		qa:        qa,
		template:  NewChatTemplate(),
		chatModel: chatModel,
		topK:      topK,
		threshold: threshold,
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

func (p *AskPipeline) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	res, err := p.r.Invoke(ctx, &req)
	if err != nil {
		return nil, err
	}
	if res.noModel {
		return nil, xerr.ErrNoChatModel
	}
	return res, nil
}
