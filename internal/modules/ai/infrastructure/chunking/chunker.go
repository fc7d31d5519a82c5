package chunking

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

const MetaChunkIndex = "chunk_index"

// 与 LangChain RecursiveCharacterTextSplitter 相同的分隔符顺序
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker 按字符数递归切分文档，相邻片段有 overlap 个字符的重叠
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int

	initOnce sync.Once
	initErr  error
	splitter document.Transformer
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1024
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{ChunkSize: size, ChunkOverlap: overlap}
}

func (c *Chunker) init(ctx context.Context) error {
	c.initOnce.Do(func() {
		impl, err := recursive.NewSplitter(ctx, &recursive.Config{
			ChunkSize:   c.ChunkSize,
			OverlapSize: c.ChunkOverlap,
			Separators:  defaultSeparators,
			LenFunc: func(s string) int {
				return len([]rune(s))
			},
			KeepType: recursive.KeepTypeEnd,
		})
		if err != nil {
			c.initErr = fmt.Errorf("init recursive splitter: %w", err)
			return
		}
		c.splitter = impl
	})
	return c.initErr
}

// ChunkDocuments 每个片段复制源文档的元数据，并记录它在源文档中的序号
//
// 空白文档不产生片段。
func (c *Chunker) ChunkDocuments(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	if len(docs) == 0 {
		return []*schema.Document{}, nil
	}
	if err := c.init(ctx); err != nil {
		return nil, err
	}

	out := make([]*schema.Document, 0, len(docs))
	for _, d := range docs {
		if d == nil || isBlank(d.Content) {
			continue
		}
		frags, err := c.splitter.Transform(ctx, []*schema.Document{{Content: d.Content}})
		if err != nil {
			return nil, err
		}
		idx := 0
		for _, f := range frags {
			if f == nil || isBlank(f.Content) {
				continue
			}
			n := &schema.Document{Content: f.Content, MetaData: make(map[string]any, len(d.MetaData)+1)}
			for k, v := range d.MetaData {
				n.MetaData[k] = v
			}
			n.MetaData[MetaChunkIndex] = idx
			idx++
			out = append(out, n)
		}
	}
	return out, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\n', '\t', '\r':
		default:
			return false
		}
	}
	return true
}
