package dbmysql

import (
	"time"
)

// Conversation holds the thread itself plus a denormalized copy of its newest
// message so summaries can be listed without scanning messages.
type Conversation struct {
	ID                  string     `gorm:"primaryKey;size:36"`
	Type                string     `gorm:"size:10;not null;default:'direct'"`
	CreatedBy           string     `gorm:"size:36"`
	LastMessageID       *string    `gorm:"size:36"`
	LastMessageText     string     `gorm:"type:text"`
	LastMessageSenderID string     `gorm:"size:36"`
	LastMessageAt       *time.Time `gorm:"index"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Participants []Participant `gorm:"foreignKey:ConversationID"`
}

// Participant is a member of a conversation and carries that member's read state.
type Participant struct {
	ConversationID string     `gorm:"primaryKey;size:36"`
	UserID         string     `gorm:"primaryKey;size:36;index"`
	UserName       string     `gorm:"size:100"`
	UnreadCount    int        `gorm:"not null;default:0"`
	LastReadAt     *time.Time
	JoinedAt       time.Time `gorm:"autoCreateTime"`
}
