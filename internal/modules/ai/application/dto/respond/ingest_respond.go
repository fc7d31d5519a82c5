package respond

const (
	IngestStatusIngested    = "ingested"
	IngestStatusSkipped     = "skipped"
	IngestStatusUnsupported = "unsupported"
	// IngestStatusEmpty 解析成功但没有任何文本，不写标记
	IngestStatusEmpty = "empty"
)

type IngestRespond struct {
	Path       string `json:"path"`
	FileName   string `json:"file_name"`
	Status     string `json:"status"`
	Format     string `json:"format,omitempty"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	DurationMs int64  `json:"duration_ms"`
}

// Stored 是否真的写入了向量库
func (r IngestRespond) Stored() bool {
	return r.Status == IngestStatusIngested
}
