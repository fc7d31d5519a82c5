package initial

import (
	"context"
	"fmt"

	"ChatBooks/internal/config"
	"ChatBooks/internal/modules/ai/domain/repository"
	"ChatBooks/internal/modules/ai/infrastructure/vectordb"
)

// VectorStores 书籍集合 + 问答集合，共用同一个后端连接
type VectorStores struct {
	Books repository.VectorStore
	QA    repository.VectorStore
	close func() error
}

func (v *VectorStores) Close() error {
	var first error
	for _, s := range []repository.VectorStore{v.Books, v.QA} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	if v.close != nil {
		if err := v.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewVectorStores 按 vectorStore.backend 打开两个集合；dim 为 embedder 输出维度
func NewVectorStores(ctx context.Context, conf *config.Config, dim int) (*VectorStores, error) {
	books := conf.VectorStoreConfig.BooksCollection
	qa := conf.VectorStoreConfig.QACollection

	switch conf.VectorStoreConfig.Backend {
	case "local":
		b, err := vectordb.NewLocalStore(conf.LocalStoreConfig.BooksDir)
		if err != nil {
			return nil, fmt.Errorf("books store: %w", err)
		}
		q, err := vectordb.NewLocalStore(conf.LocalStoreConfig.QADir)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("qa store: %w", err)
		}
		return &VectorStores{Books: b, QA: q}, nil

	case "milvus":
		cli, err := NewMilvusClient(ctx, conf, dim, books, qa)
		if err != nil {
			return nil, fmt.Errorf("milvus init: %w", err)
		}
		b, err := vectordb.NewMilvusStore(cli, books, dim)
		if err != nil {
			_ = cli.Close()
			return nil, err
		}
		q, err := vectordb.NewMilvusStore(cli, qa, dim)
		if err != nil {
			_ = cli.Close()
			return nil, err
		}
		return &VectorStores{Books: b, QA: q, close: cli.Close}, nil

	case "qdrant":
		conn, err := vectordb.DialQdrant(conf.QdrantConfig.Host, conf.QdrantConfig.Port)
		if err != nil {
			return nil, err
		}
		b, err := vectordb.NewQdrantStore(ctx, conn, books, dim)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		q, err := vectordb.NewQdrantStore(ctx, conn, qa, dim)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &VectorStores{Books: b, QA: q, close: conn.Close}, nil
	}
	return nil, fmt.Errorf("unknown vector store backend: %s", conf.VectorStoreConfig.Backend)
}
