package vectordb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"ChatBooks/internal/modules/ai/domain/repository"

	_ "modernc.org/sqlite" // SQLite driver
)

const localSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	vector     BLOB NOT NULL,
	dim        INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);`

// LocalStore 单机持久化向量库：每个集合一个目录，目录下一个 sqlite 文件
//
// 检索是全表暴力余弦，适合个人书库规模。
type LocalStore struct {
	db   *sql.DB
	path string
}

var _ repository.VectorStore = (*LocalStore)(nil)

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("local store dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	dbPath := filepath.Join(dir, "vectors.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &LocalStore{db: db, path: dbPath}, nil
}

func (s *LocalStore) Path() string { return s.path }

func (s *LocalStore) Upsert(ctx context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO entries (id, content, metadata, vector, dim, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	metadata = excluded.metadata,
	vector = excluded.vector,
	dim = excluded.dim`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if err := checkUpsertItem(it, 0); err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, it.ID, it.Content, metadataOrEmpty(it.MetadataJSON), encodeVector(it.Vector), len(it.Vector), now); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", it.ID, err)
		}
		ids = append(ids, it.ID)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *LocalStore) Search(ctx context.Context, vector []float32, topK int, scoreThreshold float32) ([]repository.VectorSearchHit, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector is empty")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata, vector FROM entries WHERE dim = ?`, len(vector))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []repository.VectorSearchHit
	for rows.Next() {
		var (
			h    repository.VectorSearchHit
			blob []byte
		)
		if err := rows.Scan(&h.ID, &h.Content, &h.MetadataJSON, &blob); err != nil {
			return nil, err
		}
		h.Score = relevance(cosineSimilarity(vector, decodeVector(blob)))
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return finalizeHits(hits, topK, scoreThreshold), nil
}

func (s *LocalStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

// 向量按 float32 小端序存成 BLOB
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
