package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gemini-assistant/internal/model"
)

// ChatRepository is an append-only log of exchanges with the model.
type ChatRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db, now: time.Now}
}

func (r *ChatRepository) Append(ctx context.Context, userID int64, input, output string) error {
	chat := model.Chat{
		UserID:      userID,
		UserInput:   input,
		BotResponse: output,
		Timestamp:   r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&chat).Error; err != nil {
		return fmt.Errorf("append chat for user %d: %w", userID, err)
	}
	return nil
}

// RecentByUser returns up to limit chats, newest first.
func (r *ChatRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats for user %d: %w", userID, err)
	}
	return chats, nil
}
