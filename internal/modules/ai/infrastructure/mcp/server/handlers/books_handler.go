package handlers

import (
	"context"
	"fmt"
	"strings"

	aiService "ChatBooks/internal/modules/ai/application/service"
	libraryService "ChatBooks/internal/modules/library/application/service"
	"ChatBooks/pkg/zlog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// BooksToolHandler 书库问答工具
type BooksToolHandler struct {
	assistantSvc aiService.AssistantService
	qaSvc        aiService.QAService
	librarySvc   libraryService.LibraryService
}

func NewBooksToolHandler(assistant aiService.AssistantService, qa aiService.QAService, library libraryService.LibraryService) *BooksToolHandler {
	return &BooksToolHandler{assistantSvc: assistant, qaSvc: qa, librarySvc: library}
}

func (h *BooksToolHandler) RegisterTools(s *server.MCPServer) {
	if h.assistantSvc != nil {
		s.AddTool(mcp.NewTool("ask_books",
			mcp.WithDescription("根据已导入的书籍和问答库回答问题，返回答案和引用片段"),
			mcp.WithString("question", mcp.Required(), mcp.Description("要问的问题")),
		), h.handleAskBooks)
	}
	if h.qaSvc != nil {
		s.AddTool(mcp.NewTool("store_qa",
			mcp.WithDescription("把一组问答存入问答库，之后的提问会召回它"),
			mcp.WithString("question", mcp.Required(), mcp.Description("问题")),
			mcp.WithString("answer", mcp.Required(), mcp.Description("答案")),
		), h.handleStoreQA)
	}
	if h.librarySvc != nil {
		s.AddTool(mcp.NewTool("list_books",
			mcp.WithDescription("列出书库目录中的文件以及是否已导入"),
		), h.handleListBooks)
	}
}

func (h *BooksToolHandler) handleAskBooks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	question, _ := args["question"].(string)
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question cannot be empty"), nil
	}

	res, err := h.assistantSvc.Ask(ctx, "", question)
	if err != nil {
		zlog.Error("mcp ask_books failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString(res.Answer)
	for _, src := range res.Sources {
		fmt.Fprintf(&b, "\n- [%s] %s (score %.3f)", src.Collection, src.Source, src.Score)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *BooksToolHandler) handleStoreQA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	question, _ := args["question"].(string)
	answer, _ := args["answer"].(string)

	res, err := h.qaSvc.StoreQA(ctx, question, answer)
	if err != nil {
		zlog.Error("mcp store_qa failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("store qa failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored QA %s", res.ID)), nil
}

func (h *BooksToolHandler) handleListBooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := h.librarySvc.ListFiles(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list books failed: %v", err)), nil
	}
	if len(files) == 0 {
		return mcp.NewToolResultText("The library is empty."), nil
	}
	lines := make([]string, 0, len(files))
	for _, f := range files {
		state := "pending"
		if f.Ingested {
			state = "ingested"
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", f.Label(), state))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
