package pipeline

import (
	"context"
	"fmt"

	"ChatBooks/internal/modules/ai/infrastructure/chunking"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// DocumentLoader 读取单个文件为文档列表（loader.Loader 实现）
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]*schema.Document, error)
}

type IngestRequest struct {
	Path string
}

type IngestResult struct {
	Path       string   `json:"path"`
	FileName   string   `json:"file_name"`
	Format     string   `json:"format"`
	Documents  int      `json:"documents"`
	Chunks     int      `json:"chunks"`
	StoredIDs  []string `json:"-"`
	DurationMs int64    `json:"duration_ms"`
}

// IngestPipeline 文件 → 文档 → 切片 → 元数据过滤 → 向量化 → 写入书籍集合
type IngestPipeline struct {
	loader   DocumentLoader
	chunker  *chunking.Chunker
	embedder embedding.Embedder
	indexer  indexer.Indexer
	r        compose.Runnable[*IngestRequest, *IngestResult]
}

func NewIngestPipeline(loader DocumentLoader, chunker *chunking.Chunker, embedder embedding.Embedder, idx indexer.Indexer) (*IngestPipeline, error) {
	if loader == nil || chunker == nil || embedder == nil || idx == nil {
		return nil, fmt.Errorf("ingest pipeline missing dependency")
	}
	p := &IngestPipeline{loader: loader, chunker: chunker, embedder: embedder, indexer: idx}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

func (p *IngestPipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	return p.r.Invoke(ctx, &req)
}
