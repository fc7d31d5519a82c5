package handlers

import (
	"context"
	"strings"

	aiService "ChatBooks/internal/modules/ai/application/service"
	"ChatBooks/pkg/ws"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NotesToolHandler 给某个会话的某个 point 追加笔记，并推到该会话的页面
type NotesToolHandler struct {
	assistantSvc aiService.AssistantService
	hub          *ws.Hub
}

func NewNotesToolHandler(assistant aiService.AssistantService, hub *ws.Hub) *NotesToolHandler {
	return &NotesToolHandler{assistantSvc: assistant, hub: hub}
}

func (h *NotesToolHandler) RegisterTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("给会话中的某个要点追加一条笔记"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("会话 ID")),
		mcp.WithString("point_id", mcp.Required(), mcp.Description("要点 ID")),
		mcp.WithString("note", mcp.Required(), mcp.Description("笔记内容")),
	), h.handleAddNote)
}

func (h *NotesToolHandler) handleAddNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	sessionID, _ := args["session_id"].(string)
	pointID, _ := args["point_id"].(string)
	note, _ := args["note"].(string)
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id cannot be empty"), nil
	}

	if err := h.assistantSvc.AddNote(ctx, sessionID, pointID, note); err != nil {
		return mcp.NewToolResultError("add note failed: " + err.Error()), nil
	}
	if h.hub != nil {
		_ = h.hub.SendJSON(sessionID, map[string]interface{}{
			"type":     "note",
			"point_id": pointID,
			"note":     note,
		})
	}
	return mcp.NewToolResultText("Note added"), nil
}
