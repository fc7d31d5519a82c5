package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"ChatBooks/internal/modules/ai/infrastructure/loader"
	"ChatBooks/internal/modules/ai/infrastructure/vectordb"
	"ChatBooks/pkg/util"
	"ChatBooks/pkg/zlog"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type ingestState struct {
	Req      *IngestRequest
	FileName string
	Format   string

	Docs      []*schema.Document
	Chunks    []*schema.Document
	StoredIDs []string
	Loaded    int

	Start time.Time
	Err   error
}

func (p *IngestPipeline) buildGraph(ctx context.Context) (compose.Runnable[*IngestRequest, *IngestResult], error) {
	const (
		Load     = "Load"
		Split    = "Split"
		Filter   = "Filter"
		Identify = "Identify"
		Embed    = "Embed"
		Store    = "Store"
	)

	g := compose.NewGraph[*IngestRequest, *IngestResult]()

	_ = g.AddLambdaNode(Load, compose.InvokableLambdaWithOption(p.loadNode), compose.WithNodeName(Load))
	_ = g.AddLambdaNode(Split, compose.InvokableLambdaWithOption(p.splitNode), compose.WithNodeName(Split))
	_ = g.AddLambdaNode(Filter, compose.InvokableLambdaWithOption(p.filterNode), compose.WithNodeName(Filter))
	_ = g.AddLambdaNode(Identify, compose.InvokableLambdaWithOption(p.identifyNode), compose.WithNodeName(Identify))
	_ = g.AddLambdaNode(Embed, compose.InvokableLambdaWithOption(p.embedNode), compose.WithNodeName(Embed))
	_ = g.AddLambdaNode(Store, compose.InvokableLambdaWithOption(p.storeNode), compose.WithNodeName(Store))

	_ = g.AddEdge(compose.START, Load)
	_ = g.AddEdge(Load, Split)
	_ = g.AddEdge(Split, Filter)
	_ = g.AddEdge(Filter, Identify)
	_ = g.AddEdge(Identify, Embed)
	_ = g.AddEdge(Embed, Store)
	_ = g.AddEdge(Store, compose.END)

	return g.Compile(ctx, compose.WithGraphName("BookIngestPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

func (p *IngestPipeline) loadNode(ctx context.Context, req *IngestRequest, _ ...any) (*ingestState, error) {
	st := &ingestState{Req: req, Start: time.Now()}
	if req == nil || req.Path == "" {
		st.Err = fmt.Errorf("missing file path")
		return st, nil
	}
	st.FileName = filepath.Base(req.Path)
	st.Format, _ = loader.FormatOf(req.Path)

	docs, err := p.loader.Load(ctx, req.Path)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Docs = docs
	st.Loaded = len(docs)
	return st, nil
}

func (p *IngestPipeline) splitNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	chunks, err := p.chunker.ChunkDocuments(ctx, st.Docs)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Chunks = chunks
	return st, nil
}

// filterNode 去掉向量库无法保存的元数据（嵌套结构、列表、nil）
func (p *IngestPipeline) filterNode(_ context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	for _, c := range st.Chunks {
		c.MetaData = vectordb.FilterComplexMetadata(c.MetaData)
	}
	return st, nil
}

// identifyNode 片段 ID 由文件名、序号、内容决定，重复导入覆盖同一批记录
func (p *IngestPipeline) identifyNode(_ context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	for i, c := range st.Chunks {
		c.ID = util.StableUUID(st.FileName, fmt.Sprint(i), c.Content)
	}
	return st, nil
}

func (p *IngestPipeline) embedNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st == nil || st.Err != nil || len(st.Chunks) == 0 {
		return st, nil
	}
	texts := make([]string, len(st.Chunks))
	for i, c := range st.Chunks {
		texts[i] = c.Content
	}
	vecs, err := p.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		st.Err = fmt.Errorf("embed chunks: %w", err)
		return st, nil
	}
	if len(vecs) != len(st.Chunks) {
		st.Err = fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(st.Chunks))
		return st, nil
	}
	for i, c := range st.Chunks {
		c.WithDenseVector(vecs[i])
	}
	return st, nil
}

func (p *IngestPipeline) storeNode(ctx context.Context, st *ingestState, _ ...any) (*IngestResult, error) {
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}
	res := &IngestResult{FileName: st.FileName, Format: st.Format, Documents: st.Loaded, Chunks: len(st.Chunks)}
	if st.Req != nil {
		res.Path = st.Req.Path
	}

	if st.Err == nil && len(st.Chunks) > 0 {
		ids, err := p.indexer.Store(ctx, st.Chunks)
		if err != nil {
			st.Err = fmt.Errorf("store chunks: %w", err)
		}
		st.StoredIDs = ids
	}
	res.StoredIDs = st.StoredIDs
	res.DurationMs = time.Since(st.Start).Milliseconds()

	if st.Err != nil {
		zlog.Warn("book ingest failed",
			zap.String("file", res.FileName),
			zap.Error(st.Err))
		return res, st.Err
	}
	zlog.Info("book ingest done",
		zap.String("file", res.FileName),
		zap.String("format", res.Format),
		zap.Int("documents", res.Documents),
		zap.Int("chunks", res.Chunks),
		zap.Int("stored", len(res.StoredIDs)),
		zap.Int64("ms", res.DurationMs))
	return res, nil
}
