package session

import (
	"context"

	"gosocialchat/internal/protocol"
)

// Backend is the request/response surface a session needs. *api.Client
// satisfies it.
type Backend interface {
	FetchPage(ctx context.Context, conversationID string, page, limit int) (*protocol.MessagePage, error)
	SendMessage(ctx context.Context, conversationID string, req protocol.SendMessageRequest) (*protocol.Message, error)
	Reply(ctx context.Context, conversationID, replyToID string, req protocol.SendMessageRequest) (*protocol.Message, error)
	SetReaction(ctx context.Context, conversationID, messageID string, req protocol.ReactionRequest) (*protocol.ReactionEvent, error)
	DeleteMessage(ctx context.Context, conversationID, messageID string) error
	DeleteConversation(ctx context.Context, conversationID string) error
	MarkRead(ctx context.Context, conversationID string) error
	Search(ctx context.Context, conversationID, query string, limit int) ([]protocol.Message, error)
}
