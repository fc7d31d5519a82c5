package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	aiRespond "ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/internal/modules/ai/infrastructure/marker"
	"ChatBooks/internal/modules/library/application/dto/respond"
	"ChatBooks/internal/modules/library/application/service"
	"ChatBooks/internal/modules/library/infrastructure/persistence"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngester struct{ markers *marker.Store }

func (s stubIngester) Ingest(_ context.Context, path string) (*aiRespond.IngestRespond, error) {
	if err := s.markers.Write(path); err != nil {
		return nil, err
	}
	return &aiRespond.IngestRespond{Path: path, FileName: filepath.Base(path), Status: aiRespond.IngestStatusIngested, Chunks: 1}, nil
}

func TestLibraryRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	books := filepath.Join(root, "books")
	markers := marker.NewStore(filepath.Join(root, "processed"))
	svc := service.NewLibraryService(books, markers.Dir(), stubIngester{markers: markers}, markers, persistence.NewMemoryBookRepository())
	h := NewLibraryHandler(svc)

	r := gin.New()
	r.GET("/library/files", h.Files)
	r.POST("/library/sync", h.Sync)

	require.NoError(t, os.MkdirAll(books, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(books, "a.pdf"), []byte("x"), 0o644))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/library/sync", nil))
	var syncResp struct {
		Code int                 `json:"code"`
		Data respond.SyncRespond `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &syncResp))
	assert.Equal(t, 200, syncResp.Code)
	assert.Equal(t, 1, syncResp.Data.Ingested)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/library/files", nil))
	var filesResp struct {
		Data []respond.FileItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filesResp))
	require.Len(t, filesResp.Data, 1)
	assert.True(t, filesResp.Data[0].Ingested)
	assert.Equal(t, "a.pdf", filesResp.Data[0].Name)
}
