package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ChatBooks/internal/modules/ai/domain/repository"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Milvus 集合字段名，与 initial.EnsureMilvusCollection 建的 schema 对应
const (
	MilvusFieldID       = "id"
	MilvusFieldVector   = "vector"
	MilvusFieldContent  = "content"
	MilvusFieldMetadata = "metadata"
)

// MilvusStore 一个 Milvus 集合；集合用 COSINE 度量
type MilvusStore struct {
	cli         mclient.Client
	collection  string
	vectorDim   int
	searchParam entity.SearchParam
}

var _ repository.VectorStore = (*MilvusStore)(nil)

func NewMilvusStore(cli mclient.Client, collection string, vectorDim int) (*MilvusStore, error) {
	if cli == nil {
		return nil, errors.New("milvus client is nil")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("collection is empty")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, err
	}
	return &MilvusStore{cli: cli, collection: collection, vectorDim: vectorDim, searchParam: sp}, nil
}

// milvusRows 按列组织的一批实体
type milvusRows struct {
	ids      []string
	vectors  [][]float32
	contents []string
	metas    [][]byte
}

func (r *milvusRows) add(it repository.VectorUpsertItem) {
	r.ids = append(r.ids, it.ID)
	r.vectors = append(r.vectors, it.Vector)
	r.contents = append(r.contents, it.Content)
	r.metas = append(r.metas, []byte(metadataOrEmpty(it.MetadataJSON)))
}

func (r *milvusRows) columns(dim int) []entity.Column {
	return []entity.Column{
		entity.NewColumnVarChar(MilvusFieldID, r.ids),
		entity.NewColumnFloatVector(MilvusFieldVector, dim, r.vectors),
		entity.NewColumnVarChar(MilvusFieldContent, r.contents),
		entity.NewColumnJSONBytes(MilvusFieldMetadata, r.metas),
	}
}

func (s *MilvusStore) Upsert(ctx context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	rows := &milvusRows{}
	for _, it := range items {
		if err := checkUpsertItem(it, s.vectorDim); err != nil {
			return nil, err
		}
		rows.add(it)
	}
	if _, err := s.cli.Upsert(ctx, s.collection, "", rows.columns(s.vectorDim)...); err != nil {
		return nil, fmt.Errorf("milvus upsert %s: %w", s.collection, err)
	}
	return rows.ids, nil
}

func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, scoreThreshold float32) ([]repository.VectorSearchHit, error) {
	if err := checkQueryVector(vector, s.vectorDim); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	res, err := s.cli.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		[]string{MilvusFieldContent, MilvusFieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		MilvusFieldVector,
		entity.COSINE,
		topK,
		s.searchParam,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search %s: %w", s.collection, err)
	}
	if len(res) == 0 {
		return []repository.VectorSearchHit{}, nil
	}
	hits, err := parseSearchResult(res[0])
	if err != nil {
		return nil, err
	}
	return finalizeHits(hits, topK, scoreThreshold), nil
}

func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	stats, err := s.cli.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(stats["row_count"], 10, 64)
}

// Close 客户端由 initial 统一关闭
func (s *MilvusStore) Close() error { return nil }

func parseSearchResult(sr mclient.SearchResult) ([]repository.VectorSearchHit, error) {
	if sr.Err != nil {
		return nil, sr.Err
	}
	// 输出字段缺失时 GetColumn 返回 nil，对应的值留空
	contents := sr.Fields.GetColumn(MilvusFieldContent)
	metas := sr.Fields.GetColumn(MilvusFieldMetadata)

	hits := make([]repository.VectorSearchHit, sr.ResultCount)
	for i := range hits {
		h := &hits[i]
		h.ID, _ = sr.IDs.GetAsString(i)
		if i < len(sr.Scores) {
			h.Score = relevance(float64(sr.Scores[i]))
		}
		if contents != nil {
			h.Content, _ = contents.GetAsString(i)
		}
		if metas != nil {
			if v, _ := metas.Get(i); v != nil {
				if bs, ok := v.([]byte); ok {
					h.MetadataJSON = string(bs)
				}
			}
		}
	}
	return hits, nil
}
