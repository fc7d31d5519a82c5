package http

import (
	aiRequest "ChatBooks/internal/modules/ai/application/dto/request"
	"ChatBooks/internal/modules/ai/application/service"
	"ChatBooks/pkg/back"
	"ChatBooks/pkg/xerr"
	"ChatBooks/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type QAHandler struct {
	svc service.QAService
}

func NewQAHandler(svc service.QAService) *QAHandler {
	return &QAHandler{svc: svc}
}

// Store POST /qa/store
func (h *QAHandler) Store(c *gin.Context) {
	var req aiRequest.StoreQARequest
	if err := c.BindJSON(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.StoreQA(c.Request.Context(), req.Question, req.Answer)
	if err != nil {
		zlog.Error("qa store failed", zap.Error(err))
	}
	back.Result(c, data, err)
}
