package dbmongo

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gosocialchat/internal/chat/events"
	"gosocialchat/internal/protocol"
)

const defaultArchiveTimeout = 5 * time.Second

// ArchivedMessage is the archive document for one chat message.
type ArchivedMessage struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversation_id"`
	SenderID       string    `bson:"sender_id"`
	Content        string    `bson:"content"`
	CreatedAt      time.Time `bson:"created_at"`
	Deleted        bool      `bson:"deleted"`
}

// MessageArchive mirrors sent messages into MongoDB and answers text search
// over them. It subscribes to the event manager as an async observer.
type MessageArchive struct {
	coll    *mongo.Collection
	timeout time.Duration
	logger  *slog.Logger
}

func NewMessageArchive(coll *mongo.Collection) *MessageArchive {
	return &MessageArchive{
		coll:    coll,
		timeout: defaultArchiveTimeout,
		logger:  slog.Default().With("component", "message-archive"),
	}
}

// EnsureIndexes creates the conversation/time index search relies on.
func (a *MessageArchive) EnsureIndexes(ctx context.Context) error {
	_, err := a.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("conversation_created_at"),
	})
	if err != nil {
		return fmt.Errorf("create archive index: %w", err)
	}
	return nil
}

func (a *MessageArchive) Name() string {
	return "mongo-archive"
}

// Update implements events.Observer.
func (a *MessageArchive) Update(event events.ChatEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	switch payload := event.Payload.(type) {
	case protocol.Message:
		if event.Name != protocol.EventNewMessage {
			return nil
		}
		return a.Store(ctx, payload)
	case protocol.MessageDeletedEvent:
		return a.MarkDeleted(ctx, payload.ConversationID, payload.MessageID)
	default:
		return nil
	}
}

// Store upserts msg so a redelivered event is harmless.
func (a *MessageArchive) Store(ctx context.Context, msg protocol.Message) error {
	doc := ArchivedMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt.UTC(),
	}
	_, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("archive message %s: %w", msg.ID, err)
	}
	return nil
}

func (a *MessageArchive) MarkDeleted(ctx context.Context, conversationID, messageID string) error {
	_, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": messageID, "conversation_id": conversationID},
		bson.M{"$set": bson.M{"deleted": true, "content": ""}},
	)
	if err != nil {
		return fmt.Errorf("archive delete %s: %w", messageID, err)
	}
	return nil
}

// Search returns the ids of live messages in the conversation whose content
// contains query (case-insensitive), newest first.
func (a *MessageArchive) Search(ctx context.Context, conversationID, query string, limit int) ([]string, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"deleted":         bson.M{"$ne": true},
		"content":         bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := a.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("archive search: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode archive hit: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("archive cursor: %w", err)
	}
	a.logger.Debug("archive search", "conversation_id", conversationID, "hits", len(ids))
	return ids, nil
}
