package model

import "time"

// User stores Telegram user metadata. PhoneNumber stays nil until the user shares a contact.
type User struct {
	ID           uint  `gorm:"primaryKey"`
	UserID       int64 `gorm:"uniqueIndex"`
	FirstName    string
	Username     string
	PhoneNumber  *string
	RegisteredAt time.Time
}
