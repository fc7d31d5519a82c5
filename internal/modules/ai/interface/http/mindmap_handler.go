package http

import (
	aiRequest "ChatBooks/internal/modules/ai/application/dto/request"
	"ChatBooks/internal/modules/ai/application/service"
	"ChatBooks/pkg/back"
	"ChatBooks/pkg/xerr"

	"github.com/gin-gonic/gin"
)

// RenderMindMap POST /mindmap/render
func RenderMindMap(c *gin.Context) {
	var req aiRequest.MindMapRequest
	if err := c.BindJSON(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := service.RenderMindMap(req.Description)
	back.Result(c, data, err)
}
