package http

import (
	"embed"

	"ChatBooks/internal/initial"
	jwtMiddleware "ChatBooks/internal/middleware/jwt"
	mcpServer "ChatBooks/internal/modules/ai/infrastructure/mcp/server"
	aiHandler "ChatBooks/internal/modules/ai/interface/http"
	aiWs "ChatBooks/internal/modules/ai/interface/websocket"
	libraryHandler "ChatBooks/internal/modules/library/interface/http"
	"ChatBooks/pkg/back"
	"ChatBooks/pkg/ssl"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

//go:embed web/*.html
var webFS embed.FS

// NewEngine 注册全部路由；c 由 initial.NewContainer 装配
func NewEngine(c *initial.Container) *gin.Engine {
	ge := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = c.Conf.MainConfig.Origins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Mcp-Session-Id"}
	ge.Use(cors.New(corsConfig))
	ge.Use(ssl.SecureHandler(c.Conf.MainConfig))

	assistantH := aiHandler.NewAssistantHandler(c.AssistantSvc)
	qaH := aiHandler.NewQAHandler(c.QASvc)
	sessionH := aiHandler.NewSessionHandler(c.SessionSvc)
	libraryH := libraryHandler.NewLibraryHandler(c.LibrarySvc)
	wsH := aiWs.NewVoiceWSHandler(c.VoiceSvc, c.Hub, c.Conf.MainConfig.Origins())

	ge.GET("/", page("web/index.html"))
	ge.GET("/mindmap", page("web/mindmap.html"))
	ge.GET("/healthz", func(ctx *gin.Context) {
		back.Success(ctx, gin.H{
			"status":  "ok",
			"backend": c.Conf.VectorStoreConfig.Backend,
			"voice":   c.VoiceSvc.Enabled(),
			"mcp":     c.MCPServer != nil,
		})
	})
	ge.POST("/session", sessionH.Create)

	authed := ge.Group("/")
	authed.Use(jwtMiddleware.Auth(c.Conf.JwtConfig))
	authed.POST("/chat/ask", assistantH.Ask)
	authed.GET("/chat/messages", assistantH.Messages)
	authed.POST("/chat/clear", assistantH.Clear)
	authed.POST("/qa/store", qaH.Store)
	authed.POST("/notes/add", assistantH.AddNote)
	authed.GET("/notes", assistantH.Notes)
	authed.GET("/library/files", libraryH.Files)
	authed.POST("/library/sync", libraryH.Sync)
	authed.POST("/mindmap/render", aiHandler.RenderMindMap)
	authed.GET("/ws/voice", wsH.Voice)
	authed.GET("/ws/events", wsH.Events)

	// MCP 客户端同样先 POST /session 拿 token
	if c.MCPServer != nil {
		mcpH := gin.WrapH(mcpServer.NewHTTPHandler(c.MCPServer))
		authed.Any("/mcp", mcpH)
	}
	return ge
}

func page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := webFS.ReadFile(name)
		if err != nil {
			c.AbortWithStatus(404)
			return
		}
		c.Data(200, "text/html; charset=utf-8", data)
	}
}
