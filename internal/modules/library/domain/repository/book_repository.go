package repository

import (
	"context"

	"ChatBooks/internal/modules/library/domain/entity"
)

// BookRepository 书目仓储；mysql 未配置时用内存实现
type BookRepository interface {
	// Upsert 按文件名覆盖
	Upsert(ctx context.Context, book *entity.Book) error
	// GetByFileName 不存在返回 nil, nil
	GetByFileName(ctx context.Context, fileName string) (*entity.Book, error)
	List(ctx context.Context) ([]entity.Book, error)
}
