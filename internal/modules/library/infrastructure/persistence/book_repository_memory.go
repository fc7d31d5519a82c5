package persistence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ChatBooks/internal/modules/library/domain/entity"
	"ChatBooks/internal/modules/library/domain/repository"
)

type memoryBookRepository struct {
	mu     sync.RWMutex
	nextID int64
	books  map[string]entity.Book
}

func NewMemoryBookRepository() repository.BookRepository {
	return &memoryBookRepository{books: make(map[string]entity.Book)}
}

func (r *memoryBookRepository) Upsert(_ context.Context, book *entity.Book) error {
	if book == nil || book.FileName == "" {
		return errors.New("book file name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if old, ok := r.books[book.FileName]; ok {
		book.Id = old.Id
		book.CreatedAt = old.CreatedAt
	} else {
		r.nextID++
		book.Id = r.nextID
		book.CreatedAt = now
	}
	book.UpdatedAt = now
	r.books[book.FileName] = *book
	return nil
}

func (r *memoryBookRepository) GetByFileName(_ context.Context, fileName string) (*entity.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[fileName]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memoryBookRepository) List(_ context.Context) ([]entity.Book, error) {
	r.mu.RLock()
	out := make([]entity.Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, b)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}
