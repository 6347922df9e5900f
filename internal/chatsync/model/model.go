// Package model holds the client-side view of conversations and messages.
package model

import (
	"time"

	"gosocialchat/internal/protocol"
)

// DeliveryState tracks a message from local send to backend confirmation.
type DeliveryState int

const (
	Pending DeliveryState = iota
	Confirmed
	Failed
)

func (s DeliveryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Reaction struct {
	UserID   string
	UserName string
	Emoji    string
	Version  int64
}

// Message is one entry of a conversation log. ID is empty until the backend
// has accepted the message; ClientID is the sender's nonce and survives
// confirmation.
type Message struct {
	ID             string
	ClientID       string
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	CreatedAt      time.Time
	ReplyToID      string
	Reactions      []Reaction
	State          DeliveryState
}

// FromWire converts a backend message. Anything the backend sends is confirmed.
func FromWire(m protocol.Message) Message {
	msg := Message{
		ID:             m.ID,
		ClientID:       m.ClientID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		ReplyToID:      m.ReplyToID,
		State:          Confirmed,
	}
	for _, r := range m.Reactions {
		msg.Reactions = append(msg.Reactions, Reaction{
			UserID:   r.UserID,
			UserName: r.UserName,
			Emoji:    r.Emoji,
			Version:  r.Version,
		})
	}
	return msg
}

type LastMessage struct {
	ID        string
	Text      string
	SenderID  string
	Timestamp time.Time
}

// Summary is one row of the conversation list.
type Summary struct {
	ID           string
	Type         string
	Participants []protocol.Participant
	LastMessage  *LastMessage
	UnreadCount  int
	CreatedAt    time.Time
}

func SummaryFromWire(c protocol.Conversation) Summary {
	s := Summary{
		ID:           c.ID,
		Type:         c.Type,
		Participants: append([]protocol.Participant(nil), c.Participants...),
		UnreadCount:  c.UnreadCount,
		CreatedAt:    c.CreatedAt,
	}
	if c.LastMessage != nil {
		s.LastMessage = &LastMessage{
			ID:        c.LastMessage.ID,
			Text:      c.LastMessage.Text,
			SenderID:  c.LastMessage.SenderID,
			Timestamp: c.LastMessage.Timestamp,
		}
	}
	return s
}

// ActivityAt orders the conversation list: the last message time, or the
// creation time for an empty conversation.
func (s Summary) ActivityAt() time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.Timestamp
	}
	return s.CreatedAt
}

// Title is a display name built from the participants other than self.
func (s Summary) Title(selfID string) string {
	title := ""
	for _, p := range s.Participants {
		if p.UserID == selfID {
			continue
		}
		name := p.UserName
		if name == "" {
			name = p.UserID
		}
		if title != "" {
			title += ", "
		}
		title += name
	}
	if title == "" {
		return s.ID
	}
	return title
}
