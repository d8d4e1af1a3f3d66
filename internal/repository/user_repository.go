package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gemini-assistant/internal/model"
)

// UserRepository keeps one row per Telegram user.
type UserRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Register upserts the user keyed by userID. Every call overwrites the profile
// fields, the phone number and registered_at. Concurrent calls are last-write-wins.
func (r *UserRepository) Register(ctx context.Context, userID int64, firstName, username string, phone *string) error {
	user := model.User{
		UserID:       userID,
		FirstName:    firstName,
		Username:     username,
		PhoneNumber:  phone,
		RegisteredAt: r.now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "username", "phone_number", "registered_at"}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("register user %d: %w", userID, err)
	}
	return nil
}

func (r *UserRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user %d: %w", userID, err)
	}
	return count > 0, nil
}

func (r *UserRepository) FindByUserID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
