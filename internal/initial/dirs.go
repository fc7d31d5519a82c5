package initial

import (
	"fmt"
	"os"

	"ChatBooks/internal/config"
)

// EnsureDataDirs 创建书库目录、已处理标记目录，本地向量库时再加两个集合目录
func EnsureDataDirs(conf *config.Config) error {
	dirs := []string{conf.LibraryConfig.BooksDir, conf.LibraryConfig.ProcessedDir}
	if conf.VectorStoreConfig.Backend == "local" {
		dirs = append(dirs, conf.LocalStoreConfig.BooksDir, conf.LocalStoreConfig.QADir)
	}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}
