package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
)

const defaultBatchSize = 64

// BatchEmbedder 把一次 EmbedStrings 拆成多个不超过 size 的请求，按原顺序拼回
//
// 一本书能切出上千个片段，远程接口对单次请求的条数和 token 数都有上限。
type BatchEmbedder struct {
	inner embedding.Embedder
	size  int
}

func NewBatchEmbedder(inner embedding.Embedder, size int) *BatchEmbedder {
	if size <= 0 {
		size = defaultBatchSize
	}
	return &BatchEmbedder{inner: inner, size: size}
}

func (b *BatchEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+b.size, len(texts))
		vecs, err := b.inner.EmbedStrings(ctx, texts[start:end], opts...)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors", start, end, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}
