package respond

import (
	"strconv"
	"time"
)

// FileItem 书库目录中的一个文件
type FileItem struct {
	Index      int        `json:"index"`
	Name       string     `json:"name"`
	Ingested   bool       `json:"ingested"`
	Format     string     `json:"format,omitempty"`
	Chunks     int        `json:"chunks,omitempty"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`
}

// Label 页面上的编号列表 "1. moby.epub"
func (f FileItem) Label() string {
	return strconv.Itoa(f.Index) + ". " + f.Name
}

// SyncItem 单个文件的同步结果
type SyncItem struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Chunks int    `json:"chunks,omitempty"`
	Error  string `json:"error,omitempty"`
}

type SyncRespond struct {
	Items      []SyncItem `json:"items"`
	Ingested   int        `json:"ingested"`
	Failed     int        `json:"failed"`
	DurationMs int64      `json:"duration_ms"`
}
