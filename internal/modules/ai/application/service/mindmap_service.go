package service

import (
	"strings"

	"ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/pkg/xerr"
)

// ErrEmptyMindMap 空描述（只有空白也算空）
var ErrEmptyMindMap = xerr.New(xerr.BadRequest, "MindMap Description cannot be empty")

// RenderMindMap 校验 mermaid 描述；渲染在浏览器里做
func RenderMindMap(description string) (*respond.MindMapRespond, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyMindMap
	}
	return &respond.MindMapRespond{Description: description}, nil
}
