package http

import (
	"ChatBooks/internal/modules/library/application/service"
	"ChatBooks/pkg/back"
	"ChatBooks/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LibraryHandler struct {
	svc service.LibraryService
}

func NewLibraryHandler(svc service.LibraryService) *LibraryHandler {
	return &LibraryHandler{svc: svc}
}

// Files GET /library/files
func (h *LibraryHandler) Files(c *gin.Context) {
	data, err := h.svc.ListFiles(c.Request.Context())
	back.Result(c, data, err)
}

// Sync POST /library/sync
func (h *LibraryHandler) Sync(c *gin.Context) {
	data, err := h.svc.Sync(c.Request.Context())
	if err != nil {
		zlog.Error("library sync failed", zap.Error(err))
	}
	back.Result(c, data, err)
}
