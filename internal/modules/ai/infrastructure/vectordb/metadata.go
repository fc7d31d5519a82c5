package vectordb

import (
	"encoding/json"
	"fmt"
)

// FilterComplexMetadata 只保留标量元数据（string / 数字 / bool），其余键丢弃
func FilterComplexMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		switch t := v.(type) {
		case string, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		}
	}
	return out
}

func encodeMetadata(md map[string]any) (string, error) {
	if len(md) == 0 {
		return "{}", nil
	}
	bs, err := json.Marshal(FilterComplexMetadata(md))
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(bs), nil
}

func decodeMetadata(s string) map[string]any {
	md := map[string]any{}
	if s == "" {
		return md
	}
	_ = json.Unmarshal([]byte(s), &md)
	return md
}
