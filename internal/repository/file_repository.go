package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gemini-assistant/internal/model"
)

// FileRepository is an append-only log of analysed uploads.
type FileRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db, now: time.Now}
}

func (r *FileRepository) Append(ctx context.Context, userID int64, fileName, description string) error {
	file := model.File{
		UserID:      userID,
		FileName:    fileName,
		Description: description,
		Timestamp:   r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&file).Error; err != nil {
		return fmt.Errorf("append file %q for user %d: %w", fileName, userID, err)
	}
	return nil
}

// RecentByUser returns up to limit file records, newest first.
func (r *FileRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.File, error) {
	var files []model.File
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files for user %d: %w", userID, err)
	}
	return files, nil
}
