package dbmysql

import "time"

// Reaction is the single reaction a user holds on a message. Version increases on
// every change so clients can discard stale updates.
type Reaction struct {
	MessageID string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"primaryKey;size:36"`
	UserName  string    `gorm:"size:100"`
	Emoji     string    `gorm:"size:32;not null"`
	Version   int64     `gorm:"not null"`
	UpdatedAt time.Time
}
