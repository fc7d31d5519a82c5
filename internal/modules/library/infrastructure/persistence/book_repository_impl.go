package persistence

import (
	"context"
	"errors"

	"ChatBooks/internal/modules/library/domain/entity"
	"ChatBooks/internal/modules/library/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bookRepositoryImpl struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) repository.BookRepository {
	return &bookRepositoryImpl{db: db}
}

func (r *bookRepositoryImpl) Upsert(ctx context.Context, book *entity.Book) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"format", "chunks", "ingested_at", "updated_at"}),
		}).
		Create(book).Error
}

func (r *bookRepositoryImpl) GetByFileName(ctx context.Context, fileName string) (*entity.Book, error) {
	var b entity.Book
	err := r.db.WithContext(ctx).Where("file_name = ?", fileName).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepositoryImpl) List(ctx context.Context) ([]entity.Book, error) {
	var out []entity.Book
	err := r.db.WithContext(ctx).Order("file_name asc").Find(&out).Error
	return out, err
}
