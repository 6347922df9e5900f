// Package protocol defines the push-channel envelope and the JSON payloads shared
// by chat-svc and the client synchronization core.
package protocol

import (
	"encoding/json"
	"time"
)

// EventName identifies the kind of push event carried by an Envelope.
type EventName string

const (
	// Handshake
	EventAuth   EventName = "auth"
	EventAuthOK EventName = "auth_ok"
	EventError  EventName = "error"

	// Client -> Server
	EventJoinRoom    EventName = "join_room"
	EventLeaveRoom   EventName = "leave_room"
	EventSendMessage EventName = "send_message" // informational mirror of the REST send

	// Both directions
	EventTypingStart     EventName = "typing_start"
	EventTypingStop      EventName = "typing_stop"
	EventReactionAdded   EventName = "reaction_added"
	EventReactionRemoved EventName = "reaction_removed"

	// Server -> Client
	EventNewMessage          EventName = "new_message"
	EventMessageDeleted      EventName = "message_deleted"
	EventConversationDeleted EventName = "conversation_deleted"
)

// Envelope wraps every websocket frame.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope creates an envelope with the given event and payload.
func NewEnvelope(event EventName, payload interface{}) (*Envelope, error) {
	if payload == nil {
		return &Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Data: raw}, nil
}

// Encode marshals an envelope for the given event and payload in one step.
func Encode(event EventName, payload interface{}) ([]byte, error) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// ParseEnvelope parses a JSON frame into an envelope.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

type AuthRequest struct {
	Token string `json:"token"`
}

type AuthOK struct {
	UserID string `json:"userId"`
	Handle string `json:"handle"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInvalid      = "invalid_event"
	ErrCodeRateLimited  = "rate_limited"
)

type RoomRequest struct {
	ConversationID string `json:"conversationId"`
}

type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// ReactionEvent carries the resolved reaction state of one user on one message.
// An empty Emoji (reaction_removed) means the user has no reaction.
type ReactionEvent struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	Emoji          string `json:"emoji,omitempty"`
	Version        int64  `json:"version"`
}

type MessageDeletedEvent struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

type ConversationDeletedEvent struct {
	ConversationID string `json:"conversationId"`
}

// SendMessageEvent mirrors a REST send over the push channel.
type SendMessageEvent struct {
	ConversationID string `json:"conversationId"`
	ClientID       string `json:"clientId"`
	Content        string `json:"content"`
	ReplyToID      string `json:"replyToId,omitempty"`
}

type Reaction struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Emoji    string `json:"emoji"`
	Version  int64  `json:"version"`
}

// Message is the wire form of a chat message, used by REST responses and the
// new_message push event alike.
type Message struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"clientId,omitempty"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	SenderName     string     `json:"senderName,omitempty"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReplyToID      string     `json:"replyToId,omitempty"`
	Reactions      []Reaction `json:"reactions,omitempty"`
}

type LastMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}

type Participant struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// Conversation is the per-caller summary returned by the conversation endpoints.
type Conversation struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Participants []Participant `json:"participants"`
	LastMessage  *LastMessage  `json:"lastMessage,omitempty"`
	UnreadCount  int           `json:"unreadCount"`
	CreatedAt    time.Time     `json:"createdAt"`
}

type MessagePage struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
	Page     int       `json:"page"`
}

// REST request bodies

type CreateConversationRequest struct {
	Type         string        `json:"type"`
	Participants []Participant `json:"participants"`
}

type SendMessageRequest struct {
	Content  string `json:"content"`
	ClientID string `json:"clientId"`
}

type ReactionRequest struct {
	Emoji  string `json:"emoji"`
	Remove bool   `json:"remove"`
}

type SearchResult struct {
	Messages []Message `json:"messages"`
}
