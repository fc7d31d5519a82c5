package vectordb

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"ChatBooks/internal/modules/ai/domain/repository"
)

// relevance 把余弦相似度 [-1,1] 映射到 [0,1]
func relevance(cos float64) float32 {
	r := (cos + 1) / 2
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return float32(r)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// finalizeHits 过滤阈值，按分数降序（同分按 ID）截到 topK
func finalizeHits(hits []repository.VectorSearchHit, topK int, threshold float32) []repository.VectorSearchHit {
	out := hits[:0]
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

const defaultTopK = 10

// checkUpsertItem dim<=0 时只要求向量非空（本地库按维度分区）
func checkUpsertItem(it repository.VectorUpsertItem, dim int) error {
	switch {
	case it.ID == "":
		return errors.New("upsert item missing ID")
	case len(it.Vector) == 0:
		return fmt.Errorf("upsert item %s missing vector", it.ID)
	case dim > 0 && len(it.Vector) != dim:
		return fmt.Errorf("vector dim mismatch for id=%s, got=%d want=%d", it.ID, len(it.Vector), dim)
	}
	return nil
}

func checkQueryVector(vector []float32, dim int) error {
	if len(vector) != dim {
		return fmt.Errorf("vector dim mismatch, got=%d want=%d", len(vector), dim)
	}
	return nil
}

func metadataOrEmpty(meta string) string {
	if meta == "" {
		return "{}"
	}
	return meta
}
