package entity

import "time"

// Book 书目：每本成功导入的书一条
type Book struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FileName   string    `gorm:"column:file_name;type:varchar(255);uniqueIndex;not null"`
	Format     string    `gorm:"column:format;type:varchar(16)"`
	Chunks     int       `gorm:"column:chunks"`
	IngestedAt time.Time `gorm:"column:ingested_at"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Book) TableName() string {
	return "book"
}
