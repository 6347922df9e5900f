package dbmysql

import (
	"time"

	"gorm.io/gorm"
)

type Message struct {
	ID             string         `gorm:"primaryKey;size:36"`
	ClientID       string         `gorm:"size:36;index"`
	ConversationID string         `gorm:"size:36;not null;index:idx_conversation_created,priority:1"`
	SenderID       string         `gorm:"size:36;not null;index"`
	SenderName     string         `gorm:"size:100"`
	Content        string         `gorm:"type:text;not null"`
	ReplyToID      *string        `gorm:"size:36"`
	CreatedAt      time.Time      `gorm:"index:idx_conversation_created,priority:2"`
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}
