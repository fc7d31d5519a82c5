package http

import (
	"ChatBooks/internal/modules/ai/application/service"
	"ChatBooks/pkg/back"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	svc service.SessionService
}

func NewSessionHandler(svc service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Create POST /session
func (h *SessionHandler) Create(c *gin.Context) {
	data, err := h.svc.Create(c.Request.Context())
	back.Result(c, data, err)
}
