package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gosocialchat/internal/chat/events"
	"gosocialchat/internal/chat/repository"
	"gosocialchat/internal/common"
	"gosocialchat/internal/config"
	"gosocialchat/internal/dbmysql"
	"gosocialchat/internal/protocol"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
)

const defaultSearchLimit = 20

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Handle string
}

// Publisher receives every server-originated chat event.
type Publisher interface {
	Publish(event events.ChatEvent)
}

// Searcher resolves a text query to message ids, newest first.
type Searcher interface {
	Search(ctx context.Context, conversationID, query string, limit int) ([]string, error)
}

// ChatService defines the interface exposed to the handler layer
type ChatService interface {
	CreateConversation(ctx context.Context, caller Identity, req protocol.CreateConversationRequest) (*protocol.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]protocol.Conversation, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*protocol.Conversation, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error

	GetMessagePage(ctx context.Context, userID, conversationID string, page, limit int) (*protocol.MessagePage, error)
	SendMessage(ctx context.Context, sender Identity, conversationID, replyToID string, req protocol.SendMessageRequest) (*protocol.Message, error)
	DeleteMessage(ctx context.Context, userID, conversationID, messageID string) error
	SetReaction(ctx context.Context, caller Identity, conversationID, messageID string, req protocol.ReactionRequest) (*protocol.ReactionEvent, error)
	MarkRead(ctx context.Context, userID, conversationID string) error
	SearchMessages(ctx context.Context, userID, conversationID, query string, limit int) ([]protocol.Message, error)

	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

type chatService struct {
	repo      repository.ChatRepository
	publisher Publisher
	searcher  Searcher
	pageSize  int
	maxPage   int
	logger    *slog.Logger

	now   func() time.Time
	newID func() string

	versionMu   sync.Mutex
	lastVersion int64
}

// Constructor used in DI/wire. searcher may be nil, in which case search falls
// back to SQL.
func NewChatService(r repository.ChatRepository, publisher Publisher, searcher Searcher, cfg *config.Config) ChatService {
	pageSize, maxPage := cfg.Chat.PageSize, cfg.Chat.MaxPageSize
	if pageSize <= 0 {
		pageSize = 30
	}
	if maxPage < pageSize {
		maxPage = pageSize
	}
	return &chatService{
		repo:      r,
		publisher: publisher,
		searcher:  searcher,
		pageSize:  pageSize,
		maxPage:   maxPage,
		logger:    slog.Default().With("component", "chat-service"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *chatService) CreateConversation(ctx context.Context, caller Identity, req protocol.CreateConversationRequest) (*protocol.Conversation, error) {
	convType, ok := common.ParseConversationType(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown conversation type %q", ErrInvalidArgument, req.Type)
	}

	seen := map[string]bool{caller.UserID: true}
	members := []dbmysql.Participant{{UserID: caller.UserID, UserName: caller.Handle}}
	for _, p := range req.Participants {
		if err := common.ValidateID("participant", p.UserID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		if seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		members = append(members, dbmysql.Participant{UserID: p.UserID, UserName: p.UserName})
	}

	switch {
	case convType == common.ConversationDirect && len(members) != 2:
		return nil, fmt.Errorf("%w: a direct conversation needs exactly one other participant", ErrInvalidArgument)
	case len(members) < 2:
		return nil, fmt.Errorf("%w: a conversation needs at least one other participant", ErrInvalidArgument)
	}

	conv := &dbmysql.Conversation{
		ID:           s.newID(),
		Type:         convType.String(),
		CreatedBy:    caller.UserID,
		CreatedAt:    s.now(),
		Participants: members,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	s.logger.Info("conversation created", "conversation_id", conv.ID, "type", conv.Type, "participants", len(members))
	summary := toSummary(conv, caller.UserID)
	return &summary, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID string) ([]protocol.Conversation, error) {
	convs, err := s.repo.ConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	summaries := make([]protocol.Conversation, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, toSummary(conv, userID))
	}
	return summaries, nil
}

func (s *chatService) GetConversation(ctx context.Context, userID, conversationID string) (*protocol.Conversation, error) {
	conv, err := s.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	summary := toSummary(conv, userID)
	return &summary, nil
}

// DeleteConversation removes the caller from the conversation. The other
// participants keep their copy until they leave as well.
func (s *chatService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if err := common.ValidateID("conversation", conversationID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	remaining, err := s.repo.RemoveParticipant(ctx, conversationID, userID)
	if err != nil {
		return s.notFoundOr(err, "delete conversation")
	}

	s.logger.Info("participant left conversation", "conversation_id", conversationID, "user_id", userID, "remaining", remaining)
	s.publisher.Publish(events.ChatEvent{
		Name:           protocol.EventConversationDeleted,
		ConversationID: conversationID,
		Recipients:     []string{userID},
		Payload:        protocol.ConversationDeletedEvent{ConversationID: conversationID},
	})
	return nil
}

// GetMessagePage returns one page of history, newest first. Page numbering
// starts at 1.
func (s *chatService) GetMessagePage(ctx context.Context, userID, conversationID string, page, limit int) (*protocol.MessagePage, error) {
	if _, err := s.conversationFor(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	limit = s.clampLimit(limit, s.pageSize)

	rows, err := s.repo.FetchPage(ctx, conversationID, (page-1)*limit, limit+1)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	messages, err := s.withReactions(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &protocol.MessagePage{Messages: messages, HasMore: hasMore, Page: page}, nil
}

// SendMessage stores a message and broadcasts it. A repeated ClientID from the
// same sender returns the stored message instead of creating a second one.
func (s *chatService) SendMessage(ctx context.Context, sender Identity, conversationID, replyToID string, req protocol.SendMessageRequest) (*protocol.Message, error) {
	if err := common.ValidateMessageContent(req.Content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	conv, err := s.conversationFor(ctx, sender.UserID, conversationID)
	if err != nil {
		return nil, err
	}

	if req.ClientID != "" {
		existing, err := s.repo.MessageByClientID(ctx, conversationID, sender.UserID, req.ClientID)
		switch {
		case err == nil:
			s.logger.Debug("duplicate send", "conversation_id", conversationID, "client_id", req.ClientID)
			msgs, err := s.withReactions(ctx, []*dbmysql.Message{existing})
			if err != nil {
				return nil, err
			}
			return &msgs[0], nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("lookup client id: %w", err)
		}
	}

	msg := &dbmysql.Message{
		ID:             s.newID(),
		ClientID:       req.ClientID,
		ConversationID: conversationID,
		SenderID:       sender.UserID,
		SenderName:     sender.Handle,
		Content:        req.Content,
		CreatedAt:      s.now(),
	}
	if replyToID != "" {
		if _, err := s.repo.MessageByID(ctx, conversationID, replyToID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: reply target %s does not exist", ErrInvalidArgument, replyToID)
			}
			return nil, fmt.Errorf("lookup reply target: %w", err)
		}
		msg.ReplyToID = &replyToID
	}

	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	wire := toWireMessage(msg, nil)
	s.publisher.Publish(events.ChatEvent{
		Name:           protocol.EventNewMessage,
		ConversationID: conversationID,
		Recipients:     participantIDs(conv),
		Payload:        wire,
		OccurredAt:     msg.CreatedAt,
	})
	return &wire, nil
}

// DeleteMessage soft-deletes a message. Only its sender may delete it.
func (s *chatService) DeleteMessage(ctx context.Context, userID, conversationID, messageID string) error {
	if err := common.ValidateID("message", messageID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	conv, err := s.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	msg, err := s.repo.MessageByID(ctx, conversationID, messageID)
	if err != nil {
		return s.notFoundOr(err, "lookup message")
	}
	if msg.SenderID != userID {
		return fmt.Errorf("%w: only the sender can delete a message", ErrForbidden)
	}
	if err := s.repo.DeleteMessage(ctx, conversationID, messageID); err != nil {
		return s.notFoundOr(err, "delete message")
	}

	s.publisher.Publish(events.ChatEvent{
		Name:           protocol.EventMessageDeleted,
		ConversationID: conversationID,
		Recipients:     participantIDs(conv),
		Payload:        protocol.MessageDeletedEvent{ConversationID: conversationID, MessageID: messageID},
	})
	return nil
}

// SetReaction stores the caller's resolved reaction on a message. Every call
// gets a version greater than any earlier one for the same user and message.
func (s *chatService) SetReaction(ctx context.Context, caller Identity, conversationID, messageID string, req protocol.ReactionRequest) (*protocol.ReactionEvent, error) {
	if err := common.ValidateID("message", messageID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !req.Remove {
		if err := common.ValidateEmoji(req.Emoji); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	conv, err := s.conversationFor(ctx, caller.UserID, conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.MessageByID(ctx, conversationID, messageID); err != nil {
		return nil, s.notFoundOr(err, "lookup message")
	}

	existing, err := s.repo.ReactionsFor(ctx, []string{messageID})
	if err != nil {
		return nil, fmt.Errorf("load reactions: %w", err)
	}
	var floor int64
	for _, r := range existing {
		if r.UserID == caller.UserID {
			floor = r.Version
		}
	}

	event := &protocol.ReactionEvent{
		ConversationID: conversationID,
		MessageID:      messageID,
		UserID:         caller.UserID,
		UserName:       caller.Handle,
		Version:        s.nextVersion(floor),
	}
	name := protocol.EventReactionRemoved
	if req.Remove {
		err = s.repo.DeleteReaction(ctx, messageID, caller.UserID)
	} else {
		name = protocol.EventReactionAdded
		event.Emoji = req.Emoji
		err = s.repo.UpsertReaction(ctx, &dbmysql.Reaction{
			MessageID: messageID,
			UserID:    caller.UserID,
			UserName:  caller.Handle,
			Emoji:     req.Emoji,
			Version:   event.Version,
			UpdatedAt: s.now(),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("store reaction: %w", err)
	}

	s.publisher.Publish(events.ChatEvent{
		Name:           name,
		ConversationID: conversationID,
		Recipients:     participantIDs(conv),
		Payload:        *event,
	})
	return event, nil
}

func (s *chatService) MarkRead(ctx context.Context, userID, conversationID string) error {
	if err := common.ValidateID("conversation", conversationID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := s.repo.MarkRead(ctx, conversationID, userID, s.now()); err != nil {
		return s.notFoundOr(err, "mark read")
	}
	return nil
}

// SearchMessages prefers the archive index and falls back to SQL when the
// archive is disabled or failing.
func (s *chatService) SearchMessages(ctx context.Context, userID, conversationID, query string, limit int) ([]protocol.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidArgument)
	}
	if _, err := s.conversationFor(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit, defaultSearchLimit)

	var rows []*dbmysql.Message
	var err error
	if s.searcher != nil {
		rows, err = s.searchArchive(ctx, conversationID, query, limit)
		if err != nil {
			s.logger.Warn("archive search failed, falling back to SQL", "conversation_id", conversationID, "error", err)
			rows = nil
		}
	}
	if rows == nil {
		rows, err = s.repo.SearchMessages(ctx, conversationID, query, limit)
		if err != nil {
			return nil, fmt.Errorf("search messages: %w", err)
		}
	}
	return s.withReactions(ctx, rows)
}

func (s *chatService) searchArchive(ctx context.Context, conversationID, query string, limit int) ([]*dbmysql.Message, error) {
	ids, err := s.searcher.Search(ctx, conversationID, query, limit)
	if err != nil {
		return nil, err
	}
	found, err := s.repo.MessagesByIDs(ctx, conversationID, ids)
	if err != nil {
		return nil, err
	}
	// keep the archive's ranking; ids missing from SQL were deleted
	byID := make(map[string]*dbmysql.Message, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	rows := make([]*dbmysql.Message, 0, len(found))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			rows = append(rows, m)
		}
	}
	return rows, nil
}

func (s *chatService) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	if _, err := s.repo.Participant(ctx, conversationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// conversationFor loads the conversation and checks that userID takes part in it.
func (s *chatService) conversationFor(ctx context.Context, userID, conversationID string) (*dbmysql.Conversation, error) {
	if err := common.ValidateID("conversation", conversationID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	conv, err := s.repo.ConversationByID(ctx, conversationID)
	if err != nil {
		return nil, s.notFoundOr(err, "load conversation")
	}
	for _, p := range conv.Participants {
		if p.UserID == userID {
			return conv, nil
		}
	}
	return nil, fmt.Errorf("%w: not a participant of conversation %s", ErrForbidden, conversationID)
}

func (s *chatService) withReactions(ctx context.Context, rows []*dbmysql.Message) ([]protocol.Message, error) {
	ids := make([]string, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}
	reactions, err := s.repo.ReactionsFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load reactions: %w", err)
	}
	byMessage := make(map[string][]*dbmysql.Reaction)
	for _, r := range reactions {
		byMessage[r.MessageID] = append(byMessage[r.MessageID], r)
	}

	messages := make([]protocol.Message, 0, len(rows))
	for _, m := range rows {
		messages = append(messages, toWireMessage(m, byMessage[m.ID]))
	}
	return messages, nil
}

func (s *chatService) clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > s.maxPage {
		return s.maxPage
	}
	return limit
}

func (s *chatService) nextVersion(floor int64) int64 {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	v := s.now().UnixNano()
	if v <= s.lastVersion {
		v = s.lastVersion + 1
	}
	if v <= floor {
		v = floor + 1
	}
	s.lastVersion = v
	return v
}

func (s *chatService) notFoundOr(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func participantIDs(conv *dbmysql.Conversation) []string {
	ids := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func toWireMessage(m *dbmysql.Message, reactions []*dbmysql.Reaction) protocol.Message {
	wire := protocol.Message{
		ID:             m.ID,
		ClientID:       m.ClientID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.ReplyToID != nil {
		wire.ReplyToID = *m.ReplyToID
	}
	for _, r := range reactions {
		wire.Reactions = append(wire.Reactions, protocol.Reaction{
			UserID:   r.UserID,
			UserName: r.UserName,
			Emoji:    r.Emoji,
			Version:  r.Version,
		})
	}
	sort.Slice(wire.Reactions, func(i, j int) bool { return wire.Reactions[i].UserID < wire.Reactions[j].UserID })
	return wire
}

func toSummary(conv *dbmysql.Conversation, userID string) protocol.Conversation {
	summary := protocol.Conversation{
		ID:           conv.ID,
		Type:         conv.Type,
		CreatedAt:    conv.CreatedAt,
		Participants: make([]protocol.Participant, 0, len(conv.Participants)),
	}
	for _, p := range conv.Participants {
		summary.Participants = append(summary.Participants, protocol.Participant{UserID: p.UserID, UserName: p.UserName})
		if p.UserID == userID {
			summary.UnreadCount = p.UnreadCount
		}
	}
	if conv.LastMessageID != nil && conv.LastMessageAt != nil {
		summary.LastMessage = &protocol.LastMessage{
			ID:        *conv.LastMessageID,
			Text:      conv.LastMessageText,
			SenderID:  conv.LastMessageSenderID,
			Timestamp: *conv.LastMessageAt,
		}
	}
	return summary
}
