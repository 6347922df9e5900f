// Package convlist keeps the process-wide, recency-ordered list of
// conversation summaries with their unread counters.
package convlist

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"gosocialchat/internal/chatsync/model"
	"gosocialchat/internal/chatsync/transport"
	"gosocialchat/internal/protocol"
)

// recentWindow bounds how many message ids per conversation are remembered
// for duplicate detection.
const recentWindow = 256

// Fetcher reads conversation summaries. *api.Client satisfies it.
type Fetcher interface {
	ListConversations(ctx context.Context) ([]protocol.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*protocol.Conversation, error)
}

type recentIDs struct {
	ring []string
	next int
	seen map[string]struct{}
}

func newRecentIDs() *recentIDs {
	return &recentIDs{ring: make([]string, recentWindow), seen: make(map[string]struct{})}
}

// add reports false when id was already seen.
func (r *recentIDs) add(id string) bool {
	if _, ok := r.seen[id]; ok {
		return false
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.seen, old)
	}
	r.ring[r.next] = id
	r.next = (r.next + 1) % len(r.ring)
	r.seen[id] = struct{}{}
	return true
}

type List struct {
	selfID  string
	fetcher Fetcher
	logger  *slog.Logger

	mu      sync.Mutex
	items   map[string]*model.Summary
	recent  map[string]*recentIDs
	openID  string
	changes chan struct{}
}

func New(selfID string, fetcher Fetcher) *List {
	return &List{
		selfID:  selfID,
		fetcher: fetcher,
		logger:  slog.Default().With("component", "convlist"),
		items:   make(map[string]*model.Summary),
		recent:  make(map[string]*recentIDs),
		changes: make(chan struct{}, 1),
	}
}

// Changes signals (coalesced) that the ordered list may look different.
func (l *List) Changes() <-chan struct{} {
	return l.changes
}

func (l *List) notify() {
	select {
	case l.changes <- struct{}{}:
	default:
	}
}

// Attach subscribes the list to the push channel. Closing the returned scope
// detaches it.
func (l *List) Attach(ch *transport.Channel) *transport.Scope {
	scope := transport.NewScope()
	scope.Track(transport.NewMessage.Subscribe(ch, func(m protocol.Message) {
		l.OnMessageArrived(m.ConversationID, model.FromWire(m))
	}))
	scope.Track(transport.ConversationDeleted.Subscribe(ch, func(ev protocol.ConversationDeletedEvent) {
		l.Remove(ev.ConversationID)
	}))
	return scope
}

// Refresh replaces the list with the backend's view. The open conversation
// keeps a zero unread count.
func (l *List) Refresh(ctx context.Context) error {
	convs, err := l.fetcher.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("refresh conversations: %w", err)
	}

	l.mu.Lock()
	items := make(map[string]*model.Summary, len(convs))
	for _, c := range convs {
		s := model.SummaryFromWire(c)
		if s.ID == l.openID {
			s.UnreadCount = 0
		}
		items[s.ID] = &s
	}
	for id := range l.recent {
		if _, ok := items[id]; !ok {
			delete(l.recent, id)
		}
	}
	l.items = items
	l.mu.Unlock()

	l.notify()
	return nil
}

// Insert adds or replaces one summary.
func (l *List) Insert(s model.Summary) {
	l.mu.Lock()
	if s.ID == l.openID {
		s.UnreadCount = 0
	}
	if cur, ok := l.items[s.ID]; ok && cur.LastMessage != nil {
		if s.LastMessage == nil || s.LastMessage.Timestamp.Before(cur.LastMessage.Timestamp) {
			s.LastMessage = cur.LastMessage
		}
	}
	l.items[s.ID] = &s
	l.mu.Unlock()
	l.notify()
}

// FetchAndInsert loads one conversation the list does not know yet.
func (l *List) FetchAndInsert(ctx context.Context, conversationID string) (model.Summary, error) {
	c, err := l.fetcher.GetConversation(ctx, conversationID)
	if err != nil {
		return model.Summary{}, fmt.Errorf("fetch conversation %s: %w", conversationID, err)
	}
	s := model.SummaryFromWire(*c)
	l.Insert(s)
	got, _ := l.Get(conversationID)
	return got, nil
}

func (l *List) Remove(conversationID string) bool {
	l.mu.Lock()
	_, ok := l.items[conversationID]
	delete(l.items, conversationID)
	delete(l.recent, conversationID)
	l.mu.Unlock()
	if ok {
		l.notify()
	}
	return ok
}

// OnMessageArrived records a confirmed message. Messages for conversations
// the list does not hold are dropped; callers wanting them use
// FetchAndInsert. Unread grows by one per distinct message, except for the
// open conversation and for the user's own messages.
func (l *List) OnMessageArrived(conversationID string, msg model.Message) bool {
	if msg.State != model.Confirmed || msg.ID == "" {
		return false
	}

	l.mu.Lock()
	s, ok := l.items[conversationID]
	if !ok {
		l.mu.Unlock()
		l.logger.Debug("message for unknown conversation dropped", "conversation_id", conversationID, "message_id", msg.ID)
		return false
	}
	recent := l.recent[conversationID]
	if recent == nil {
		recent = newRecentIDs()
		l.recent[conversationID] = recent
	}
	if !recent.add(msg.ID) {
		l.mu.Unlock()
		return false
	}

	if s.LastMessage == nil || !msg.CreatedAt.Before(s.LastMessage.Timestamp) {
		s.LastMessage = &model.LastMessage{
			ID:        msg.ID,
			Text:      msg.Content,
			SenderID:  msg.SenderID,
			Timestamp: msg.CreatedAt,
		}
	}
	if conversationID != l.openID && msg.SenderID != l.selfID {
		s.UnreadCount++
	}
	l.mu.Unlock()

	l.notify()
	return true
}

// OnConversationOpened marks id as the conversation on screen.
func (l *List) OnConversationOpened(conversationID string) {
	l.mu.Lock()
	l.openID = conversationID
	l.mu.Unlock()
}

func (l *List) OnConversationClosed() {
	l.mu.Lock()
	l.openID = ""
	l.mu.Unlock()
}

func (l *List) OpenID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openID
}

// MarkRead zeroes the unread count locally, after the backend accepted it.
func (l *List) MarkRead(conversationID string) {
	l.mu.Lock()
	s, ok := l.items[conversationID]
	changed := ok && s.UnreadCount != 0
	if changed {
		s.UnreadCount = 0
	}
	l.mu.Unlock()
	if changed {
		l.notify()
	}
}

func (l *List) Get(conversationID string) (model.Summary, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.items[conversationID]
	if !ok {
		return model.Summary{}, false
	}
	return *s, true
}

// GetOrdered returns the summaries, most recent activity first.
func (l *List) GetOrdered() []model.Summary {
	l.mu.Lock()
	out := make([]model.Summary, 0, len(l.items))
	for _, s := range l.items {
		out = append(out, *s)
	}
	l.mu.Unlock()

	slices.SortFunc(out, func(a, b model.Summary) int {
		if c := b.ActivityAt().Compare(a.ActivityAt()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (l *List) TotalUnread() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.items {
		n += s.UnreadCount
	}
	return n
}
