package http

import (
	"ChatBooks/internal/middleware/jwt"
	aiRequest "ChatBooks/internal/modules/ai/application/dto/request"
	"ChatBooks/internal/modules/ai/application/service"
	"ChatBooks/pkg/back"
	"ChatBooks/pkg/xerr"
	"ChatBooks/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AssistantHandler 问答、对话记录、笔记
type AssistantHandler struct {
	svc service.AssistantService
}

func NewAssistantHandler(svc service.AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

// Ask POST /chat/ask
func (h *AssistantHandler) Ask(c *gin.Context) {
	var req aiRequest.AskRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error("chat ask bind error", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	sessionID := jwt.SessionID(c)
	data, err := h.svc.Ask(c.Request.Context(), sessionID, req.Question)
	if err != nil {
		zlog.Error("chat ask failed", zap.Error(err), zap.String("session_id", sessionID))
	}
	back.Result(c, data, err)
}

// Messages GET /chat/messages
func (h *AssistantHandler) Messages(c *gin.Context) {
	data, err := h.svc.Messages(c.Request.Context(), jwt.SessionID(c))
	back.Result(c, data, err)
}

// Clear POST /chat/clear
func (h *AssistantHandler) Clear(c *gin.Context) {
	err := h.svc.Clear(c.Request.Context(), jwt.SessionID(c))
	back.Result(c, nil, err)
}

// AddNote POST /notes/add
func (h *AssistantHandler) AddNote(c *gin.Context) {
	var req aiRequest.AddNoteRequest
	if err := c.BindJSON(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	err := h.svc.AddNote(c.Request.Context(), jwt.SessionID(c), req.PointID, req.Note)
	back.Result(c, nil, err)
}

// Notes GET /notes
func (h *AssistantHandler) Notes(c *gin.Context) {
	data, err := h.svc.Notes(c.Request.Context(), jwt.SessionID(c))
	back.Result(c, data, err)
}
