package model

import "time"

// Chat is one immutable question/answer exchange with the model.
type Chat struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      int64 `gorm:"index"`
	UserInput   string
	BotResponse string
	Timestamp   time.Time `gorm:"index"`
}
