package repository

import "context"

// VectorStore 是 domain 层定义的“向量库能力抽象”。
//
// application / pipeline 只依赖本接口；local(sqlite) / Milvus / Qdrant 在 infrastructure 中各自实现。
// Score 统一为 [0,1] 的相关度（余弦相似度映射后），越大越相关，阈值过滤基于这个分数。

type VectorUpsertItem struct {
	ID           string
	Vector       []float32
	Content      string
	MetadataJSON string
}

type VectorSearchHit struct {
	ID           string
	Score        float32
	Content      string
	MetadataJSON string
}

type VectorStore interface {
	// Upsert 同 ID 覆盖写入
	Upsert(ctx context.Context, items []VectorUpsertItem) ([]string, error)
	// Search 按相关度降序返回至多 topK 条，且 Score >= scoreThreshold
	Search(ctx context.Context, vector []float32, topK int, scoreThreshold float32) ([]VectorSearchHit, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
