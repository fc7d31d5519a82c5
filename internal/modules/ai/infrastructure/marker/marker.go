package marker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store 已处理标记目录：每本导入过的书一个标记文件
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) Dir() string { return s.dir }

// MarkerName .epub 的标记改名为 .txt，其余保持原文件名
func MarkerName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	if strings.EqualFold(ext, ".epub") {
		return strings.TrimSuffix(base, ext) + ".txt"
	}
	return base
}

func (s *Store) Path(sourcePath string) string {
	return filepath.Join(s.dir, MarkerName(sourcePath))
}

func (s *Store) Exists(sourcePath string) (bool, error) {
	_, err := os.Stat(s.Path(sourcePath))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write 创建标记；已存在时不覆盖
func (s *Store) Write(sourcePath string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}
	f, err := os.OpenFile(s.Path(sourcePath), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "Ingested on: %s\n", s.now().Format(time.RFC3339))
	return err
}
