package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gosocialchat/internal/dbmysql"
)

var ErrNotFound = errors.New("record not found")

type ChatRepository interface {
	CreateConversation(ctx context.Context, conv *dbmysql.Conversation) error
	ConversationByID(ctx context.Context, id string) (*dbmysql.Conversation, error)
	ConversationsForUser(ctx context.Context, userID string) ([]*dbmysql.Conversation, error)
	Participant(ctx context.Context, conversationID, userID string) (*dbmysql.Participant, error)
	RemoveParticipant(ctx context.Context, conversationID, userID string) (remaining int64, err error)
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error

	Save(ctx context.Context, msg *dbmysql.Message) error
	MessageByID(ctx context.Context, conversationID, id string) (*dbmysql.Message, error)
	MessageByClientID(ctx context.Context, conversationID, senderID, clientID string) (*dbmysql.Message, error)
	MessagesByIDs(ctx context.Context, conversationID string, ids []string) ([]*dbmysql.Message, error)
	FetchPage(ctx context.Context, conversationID string, offset, limit int) ([]*dbmysql.Message, error)
	SearchMessages(ctx context.Context, conversationID, query string, limit int) ([]*dbmysql.Message, error)
	DeleteMessage(ctx context.Context, conversationID, id string) error

	ReactionsFor(ctx context.Context, messageIDs []string) ([]*dbmysql.Reaction, error)
	UpsertReaction(ctx context.Context, reaction *dbmysql.Reaction) error
	DeleteReaction(ctx context.Context, messageID, userID string) error
}

type chatRepo struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

// CreateConversation inserts the conversation and its participants atomically.
func (r *chatRepo) CreateConversation(ctx context.Context, conv *dbmysql.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *chatRepo) ConversationByID(ctx context.Context, id string) (*dbmysql.Conversation, error) {
	var conv dbmysql.Conversation
	err := r.db.WithContext(ctx).Preload("Participants").Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *chatRepo) ConversationsForUser(ctx context.Context, userID string) ([]*dbmysql.Conversation, error) {
	var convs []*dbmysql.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Joins("JOIN participants ON participants.conversation_id = conversations.id AND participants.user_id = ?", userID).
		Order("COALESCE(conversations.last_message_at, conversations.created_at) DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *chatRepo) Participant(ctx context.Context, conversationID, userID string) (*dbmysql.Participant, error) {
	var p dbmysql.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// RemoveParticipant drops userID from the conversation. When nobody is left the
// conversation, its messages and their reactions are deleted too.
func (r *chatRepo) RemoveParticipant(ctx context.Context, conversationID, userID string) (int64, error) {
	var remaining int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("conversation_id = ? AND user_id = ?", conversationID, userID).Delete(&dbmysql.Participant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Model(&dbmysql.Participant{}).Where("conversation_id = ?", conversationID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		messageIDs := tx.Model(&dbmysql.Message{}).Unscoped().Select("id").Where("conversation_id = ?", conversationID)
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&dbmysql.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("conversation_id = ?", conversationID).Delete(&dbmysql.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", conversationID).Delete(&dbmysql.Conversation{}).Error
	})
	return remaining, err
}

func (r *chatRepo) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&dbmysql.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(map[string]interface{}{
			"unread_count": 0,
			"last_read_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when nothing changed, so confirm membership.
		if _, err := r.Participant(ctx, conversationID, userID); err != nil {
			return err
		}
	}
	return nil
}

// Save stores the message, refreshes the conversation's last-message columns and
// bumps every other participant's unread counter in a single transaction.
func (r *chatRepo) Save(ctx context.Context, msg *dbmysql.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		if err := tx.Model(&dbmysql.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message_id":        msg.ID,
				"last_message_text":      msg.Content,
				"last_message_sender_id": msg.SenderID,
				"last_message_at":        msg.CreatedAt,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&dbmysql.Participant{}).
			Where("conversation_id = ? AND user_id <> ?", msg.ConversationID, msg.SenderID).
			UpdateColumn("unread_count", gorm.Expr("unread_count + ?", 1)).Error
	})
}

func (r *chatRepo) MessageByID(ctx context.Context, conversationID, id string) (*dbmysql.Message, error) {
	var msg dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id = ?", conversationID, id).
		First(&msg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *chatRepo) MessageByClientID(ctx context.Context, conversationID, senderID, clientID string) (*dbmysql.Message, error) {
	var msg dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND sender_id = ? AND client_id = ?", conversationID, senderID, clientID).
		First(&msg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *chatRepo) MessagesByIDs(ctx context.Context, conversationID string, ids []string) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message
	if len(ids) == 0 {
		return messages, nil
	}
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id IN ?", conversationID, ids).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// FetchPage returns up to limit messages, newest first, skipping offset rows.
func (r *chatRepo) FetchPage(ctx context.Context, conversationID string, offset, limit int) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepo) SearchMessages(ctx context.Context, conversationID, query string, limit int) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND content LIKE ?", conversationID, "%"+escapeLike(query)+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteMessage soft-deletes the message and, if it was the newest one, points
// the conversation's last-message columns at the newest survivor.
func (r *chatRepo) DeleteMessage(ctx context.Context, conversationID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("conversation_id = ? AND id = ?", conversationID, id).Delete(&dbmysql.Message{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var conv dbmysql.Conversation
		if err := tx.Select("id", "last_message_id").Where("id = ?", conversationID).First(&conv).Error; err != nil {
			return translate(err)
		}
		if conv.LastMessageID == nil || *conv.LastMessageID != id {
			return nil
		}

		updates := map[string]interface{}{
			"last_message_id":        nil,
			"last_message_text":      "",
			"last_message_sender_id": "",
			"last_message_at":        nil,
		}
		var newest dbmysql.Message
		err := tx.Where("conversation_id = ?", conversationID).Order("created_at DESC").First(&newest).Error
		switch {
		case err == nil:
			updates["last_message_id"] = newest.ID
			updates["last_message_text"] = newest.Content
			updates["last_message_sender_id"] = newest.SenderID
			updates["last_message_at"] = newest.CreatedAt
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Model(&dbmysql.Conversation{}).Where("id = ?", conversationID).Updates(updates).Error
	})
}

func (r *chatRepo) ReactionsFor(ctx context.Context, messageIDs []string) ([]*dbmysql.Reaction, error) {
	var reactions []*dbmysql.Reaction
	if len(messageIDs) == 0 {
		return reactions, nil
	}
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

// UpsertReaction replaces whatever reaction the user held on the message.
func (r *chatRepo) UpsertReaction(ctx context.Context, reaction *dbmysql.Reaction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_name", "emoji", "version", "updated_at"}),
		}).
		Create(reaction).Error
}

func (r *chatRepo) DeleteReaction(ctx context.Context, messageID, userID string) error {
	return r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&dbmysql.Reaction{}).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
