package vectordb

import (
	"context"
	"errors"
	"fmt"

	"ChatBooks/internal/modules/ai/domain/repository"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	qdrantPayloadContent  = "content"
	qdrantPayloadMetadata = "metadata"
)

// QdrantStore 一个 Qdrant 集合（gRPC，Cosine 距离）
type QdrantStore struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string
	vectorDim  int
}

var _ repository.VectorStore = (*QdrantStore)(nil)

// DialQdrant 建立到 host:port 的 gRPC 连接
func DialQdrant(host string, port int) (*grpc.ClientConn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return conn, nil
}

// NewQdrantStore 复用已有连接，集合不存在时创建
func NewQdrantStore(ctx context.Context, conn *grpc.ClientConn, collection string, vectorDim int) (*QdrantStore, error) {
	if conn == nil {
		return nil, errors.New("qdrant conn is nil")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	s := &QdrantStore{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
		vectorDim:  vectorDim,
	}
	if err := s.ensureCollection(ctx, pb.NewCollectionsClient(conn)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, cols pb.CollectionsClient) error {
	resp, err := cols.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant list collections: %w", err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	_, err = cols.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(s.vectorDim), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	points := make([]*pb.PointStruct, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if err := checkUpsertItem(it, s.vectorDim); err != nil {
			return nil, err
		}
		points = append(points, &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: it.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: it.Vector}}},
			Payload: map[string]*pb.Value{
				qdrantPayloadContent:  {Kind: &pb.Value_StringValue{StringValue: it.Content}},
				qdrantPayloadMetadata: {Kind: &pb.Value_StringValue{StringValue: metadataOrEmpty(it.MetadataJSON)}},
			},
		})
		ids = append(ids, it.ID)
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int, scoreThreshold float32) ([]repository.VectorSearchHit, error) {
	if err := checkQueryVector(vector, s.vectorDim); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, err
	}

	hits := make([]repository.VectorSearchHit, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		payload := pt.GetPayload()
		hits = append(hits, repository.VectorSearchHit{
			ID:           pt.GetId().GetUuid(),
			Score:        relevance(float64(pt.GetScore())),
			Content:      payload[qdrantPayloadContent].GetStringValue(),
			MetadataJSON: payload[qdrantPayloadMetadata].GetStringValue(),
		})
	}
	return finalizeHits(hits, topK, scoreThreshold), nil
}

func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection, Exact: &exact})
	if err != nil {
		return 0, err
	}
	return int64(resp.GetResult().GetCount()), nil
}

// Close 连接由 initial 统一关闭
func (s *QdrantStore) Close() error { return nil }
