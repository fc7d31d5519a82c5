package vectordb

import (
	"context"
	"fmt"

	"ChatBooks/internal/modules/ai/domain/repository"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// EinoVectorStore 把 domain 的 repository.VectorStore 包成 eino 的 Indexer + Retriever
//
// Store 时没有 DenseVector 的文档会先用 embedder 批量向量化；
// Retrieve 先向量化 query，再按 TopK / ScoreThreshold 检索，返回的文档带 Score。
type EinoVectorStore struct {
	vs       repository.VectorStore
	embedder embedding.Embedder
	topK     int
}

var _ indexer.Indexer = (*EinoVectorStore)(nil)
var _ retriever.Retriever = (*EinoVectorStore)(nil)

func NewEinoVectorStore(vs repository.VectorStore, embedder embedding.Embedder, defaultTopK int) (*EinoVectorStore, error) {
	if vs == nil {
		return nil, fmt.Errorf("vector store is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 10
	}
	return &EinoVectorStore{vs: vs, embedder: embedder, topK: defaultTopK}, nil
}

func (s *EinoVectorStore) VectorStore() repository.VectorStore { return s.vs }

func (s *EinoVectorStore) Store(ctx context.Context, docs []*schema.Document, _ ...indexer.Option) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}

	var (
		pending []*schema.Document
		texts   []string
	)
	for _, d := range docs {
		if d == nil {
			continue
		}
		if len(d.DenseVector()) == 0 {
			pending = append(pending, d)
			texts = append(texts, d.Content)
		}
	}
	if len(texts) > 0 {
		vecs, err := s.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed documents: %w", err)
		}
		if len(vecs) != len(pending) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(pending))
		}
		for i, d := range pending {
			d.WithDenseVector(vecs[i])
		}
	}

	items := make([]repository.VectorUpsertItem, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		it, err := docToUpsertItem(d)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return s.vs.Upsert(ctx, items)
}

func (s *EinoVectorStore) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := s.topK
	threshold := 0.0
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &topK, ScoreThreshold: &threshold}, opts...)
	if o.TopK != nil && *o.TopK > 0 {
		topK = *o.TopK
	}
	if o.ScoreThreshold != nil {
		threshold = *o.ScoreThreshold
	}

	vecs, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vecs))
	}

	hits, err := s.vs.Search(ctx, toFloat32(vecs[0]), topK, float32(threshold))
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Document, 0, len(hits))
	for _, h := range hits {
		d := &schema.Document{ID: h.ID, Content: h.Content, MetaData: decodeMetadata(h.MetadataJSON)}
		out = append(out, d.WithScore(float64(h.Score)))
	}
	return out, nil
}

func docToUpsertItem(doc *schema.Document) (repository.VectorUpsertItem, error) {
	if doc.ID == "" {
		return repository.VectorUpsertItem{}, fmt.Errorf("document missing ID")
	}
	vec := doc.DenseVector()
	if len(vec) == 0 {
		return repository.VectorUpsertItem{}, fmt.Errorf("document %s missing dense vector", doc.ID)
	}
	meta, err := encodeMetadata(doc.MetaData)
	if err != nil {
		return repository.VectorUpsertItem{}, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	return repository.VectorUpsertItem{
		ID:           doc.ID,
		Vector:       toFloat32(vec),
		Content:      doc.Content,
		MetadataJSON: meta,
	}, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(v[i])
	}
	return out
}
