package server

import (
	aiService "ChatBooks/internal/modules/ai/application/service"
	mcpHandlers "ChatBooks/internal/modules/ai/infrastructure/mcp/server/handlers"
	libraryService "ChatBooks/internal/modules/library/application/service"
	"ChatBooks/pkg/ws"

	"github.com/mark3labs/mcp-go/server"
)

// BuiltinServerConfig 内置服务器配置
type BuiltinServerConfig struct {
	Name    string
	Version string
}

// BuiltinServerDependencies 内置服务器依赖，为 nil 的服务对应的工具不注册
type BuiltinServerDependencies struct {
	AssistantSvc aiService.AssistantService
	QASvc        aiService.QAService
	LibrarySvc   libraryService.LibraryService
	WsHub        *ws.Hub
}

// NewBuiltinMCPServer 创建并配置内置 MCP Server
func NewBuiltinMCPServer(conf BuiltinServerConfig, deps BuiltinServerDependencies) *server.MCPServer {
	s := server.NewMCPServer(
		conf.Name,
		conf.Version,
		server.WithToolCapabilities(true),
	)

	mcpHandlers.NewBooksToolHandler(deps.AssistantSvc, deps.QASvc, deps.LibrarySvc).RegisterTools(s)

	if deps.AssistantSvc != nil {
		mcpHandlers.NewNotesToolHandler(deps.AssistantSvc, deps.WsHub).RegisterTools(s)
	}
	return s
}

// NewHTTPHandler streamable HTTP 传输，挂到 gin 的 /mcp 上
func NewHTTPHandler(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s)
}
