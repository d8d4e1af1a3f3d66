package model

import "time"

// File records the outcome of analysing an uploaded document.
type File struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      int64 `gorm:"index"`
	FileName    string
	Description string
	Timestamp   time.Time `gorm:"index"`
}
