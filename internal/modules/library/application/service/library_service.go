package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	aiRespond "ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/internal/modules/library/application/dto/respond"
	"ChatBooks/internal/modules/library/domain/entity"
	"ChatBooks/internal/modules/library/domain/repository"
	"ChatBooks/pkg/zlog"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Ingester 导入单个文件（ai 模块的 IngestService 实现）
type Ingester interface {
	Ingest(ctx context.Context, path string) (*aiRespond.IngestRespond, error)
}

// MarkerChecker 判断文件是否已经处理过
type MarkerChecker interface {
	Exists(sourcePath string) (bool, error)
}

type LibraryService interface {
	// Sync 扫描书库目录，导入本进程还没见过的文件
	Sync(ctx context.Context) (*respond.SyncRespond, error)
	ListFiles(ctx context.Context) ([]respond.FileItem, error)
	// OnIngested 导入成功后写书目
	OnIngested(ctx context.Context, res aiRespond.IngestRespond)
	// Watch 阻塞监听书库目录，新文件写完后自动导入，ctx 结束时返回
	Watch(ctx context.Context) error
}

type libraryService struct {
	booksDir     string
	processedDir string
	ingester     Ingester
	markers      MarkerChecker
	books        repository.BookRepository

	mu   sync.Mutex
	seen map[string]struct{}

	// 同一个文件连续写入时只在最后一次事件之后导入
	debounce time.Duration
}

func NewLibraryService(booksDir, processedDir string, ingester Ingester, markers MarkerChecker, books repository.BookRepository) LibraryService {
	return &libraryService{
		booksDir:     booksDir,
		processedDir: processedDir,
		ingester:     ingester,
		markers:      markers,
		books:        books,
		seen:         make(map[string]struct{}),
		debounce:     2 * time.Second,
	}
}

func (s *libraryService) ensureDirs() error {
	for _, d := range []string{s.booksDir, s.processedDir} {
		if strings.TrimSpace(d) == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", d, err)
		}
	}
	return nil
}

func (s *libraryService) Sync(ctx context.Context) (*respond.SyncRespond, error) {
	start := time.Now()
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.booksDir)
	if err != nil {
		return nil, fmt.Errorf("read books dir: %w", err)
	}

	out := &respond.SyncRespond{Items: []respond.SyncItem{}}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() || isHidden(e.Name()) {
			continue
		}
		path := filepath.Join(s.booksDir, e.Name())
		if !s.markSeen(path) {
			continue
		}

		item := respond.SyncItem{Name: e.Name()}
		res, err := s.ingester.Ingest(ctx, path)
		if err != nil {
			item.Status = "failed"
			item.Error = err.Error()
			out.Failed++
			// 失败的文件下次同步再试
			s.unmarkSeen(path)
			zlog.Warn("library sync ingest failed", zap.String("path", path), zap.Error(err))
		} else {
			item.Status = res.Status
			item.Chunks = res.Chunks
			if res.Stored() {
				out.Ingested++
			}
		}
		out.Items = append(out.Items, item)
	}
	out.DurationMs = time.Since(start).Milliseconds()
	zlog.Info("library sync done",
		zap.Int("files", len(out.Items)),
		zap.Int("ingested", out.Ingested),
		zap.Int("failed", out.Failed),
		zap.Int64("duration_ms", out.DurationMs),
	)
	return out, nil
}

func (s *libraryService) markSeen(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[path]; ok {
		return false
	}
	s.seen[path] = struct{}{}
	return true
}

func (s *libraryService) unmarkSeen(path string) {
	s.mu.Lock()
	delete(s.seen, path)
	s.mu.Unlock()
}

func (s *libraryService) ListFiles(ctx context.Context) ([]respond.FileItem, error) {
	entries, err := os.ReadDir(s.booksDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []respond.FileItem{}, nil
		}
		return nil, err
	}
	out := make([]respond.FileItem, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || isHidden(e.Name()) {
			continue
		}
		item := respond.FileItem{Index: len(out) + 1, Name: e.Name()}
		if ok, err := s.markers.Exists(filepath.Join(s.booksDir, e.Name())); err == nil {
			item.Ingested = ok
		}
		if s.books != nil {
			b, err := s.books.GetByFileName(ctx, e.Name())
			if err != nil {
				zlog.Warn("library catalog lookup failed", zap.String("file_name", e.Name()), zap.Error(err))
			} else if b != nil {
				item.Format = b.Format
				item.Chunks = b.Chunks
				at := b.IngestedAt
				item.IngestedAt = &at
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *libraryService) OnIngested(ctx context.Context, res aiRespond.IngestRespond) {
	if s.books == nil || !res.Stored() {
		return
	}
	err := s.books.Upsert(ctx, &entity.Book{
		FileName:   res.FileName,
		Format:     res.Format,
		Chunks:     res.Chunks,
		IngestedAt: time.Now(),
	})
	if err != nil {
		zlog.Warn("library catalog upsert failed", zap.String("file_name", res.FileName), zap.Error(err))
	}
}

func (s *libraryService) Watch(ctx context.Context) error {
	if err := s.ensureDirs(); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(s.booksDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.booksDir, err)
	}
	zlog.Info("library watching", zap.String("dir", s.booksDir))

	var (
		tmu    sync.Mutex
		timers = make(map[string]*time.Timer)
		wg     sync.WaitGroup
	)
	defer func() {
		tmu.Lock()
		for _, t := range timers {
			if t.Stop() {
				wg.Done()
			}
		}
		tmu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			zlog.Warn("library watcher error", zap.Error(err))
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			path, ok := ingestTarget(ev)
			if !ok {
				continue
			}
			tmu.Lock()
			if t, exists := timers[path]; exists {
				// 已经触发过的 timer 被 Reset 后回调会再跑一次
				if !t.Reset(s.debounce) {
					wg.Add(1)
				}
			} else {
				wg.Add(1)
				timers[path] = time.AfterFunc(s.debounce, func() {
					defer wg.Done()
					tmu.Lock()
					delete(timers, path)
					tmu.Unlock()
					if ctx.Err() != nil {
						return
					}
					s.ingestWatched(ctx, path)
				})
			}
			tmu.Unlock()
		}
	}
}

func (s *libraryService) ingestWatched(ctx context.Context, path string) {
	res, err := s.ingester.Ingest(ctx, path)
	if err != nil {
		zlog.Warn("library watch ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.markSeen(path)
	zlog.Info("library watch ingest", zap.String("path", path), zap.String("status", res.Status))
}

// ingestTarget 只处理普通文件的创建和写入；目录和隐藏文件跳过
func ingestTarget(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(filepath.Base(ev.Name)) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
