// Package store keeps the ordered message log of one open conversation and is
// the only place that log is mutated. Local sends, REST results and push
// events all go through Append, which is idempotent by message id and by the
// sender's client nonce.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"gosocialchat/internal/chatsync/model"
	"gosocialchat/internal/protocol"
)

var (
	ErrNotLoaded = errors.New("conversation not loaded")
	ErrUnknown   = errors.New("unknown message")
)

// Fetcher reads one page of history, newest first. Pages are 1-based.
type Fetcher interface {
	FetchPage(ctx context.Context, conversationID string, page, limit int) (*protocol.MessagePage, error)
}

type entry struct {
	msg model.Message
	seq uint64
}

type Store struct {
	conversationID string
	fetcher        Fetcher
	pageSize       int
	now            func() time.Time
	newNonce       func() string

	fetchMu sync.Mutex // one page request at a time

	mu         sync.Mutex
	entries    []*entry
	byID       map[string]*entry
	byClientID map[string]*entry
	tombstones map[string]struct{}
	seq        uint64
	loaded     bool
	nextPage   int
	hasMore    bool
}

func New(conversationID string, fetcher Fetcher, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = 30
	}
	return &Store{
		conversationID: conversationID,
		fetcher:        fetcher,
		pageSize:       pageSize,
		now:            func() time.Time { return time.Now().UTC() },
		newNonce:       uuid.NewString,
		byID:           make(map[string]*entry),
		byClientID:     make(map[string]*entry),
		tombstones:     make(map[string]struct{}),
	}
}

func (s *Store) ConversationID() string {
	return s.conversationID
}

// LoadInitial fetches the newest page and merges it into the log.
func (s *Store) LoadInitial(ctx context.Context) ([]model.Message, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	page, err := s.fetcher.FetchPage(ctx, s.conversationID, 1, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", s.conversationID, err)
	}

	s.mu.Lock()
	s.mergeLocked(page.Messages)
	s.loaded = true
	s.nextPage = 2
	s.hasMore = page.HasMore
	s.mu.Unlock()

	return s.Messages(), nil
}

// LoadOlder fetches the next page back in history and returns the messages it
// added. Ids already in the log or tombstoned are skipped, so shifted page
// boundaries never duplicate an entry.
func (s *Store) LoadOlder(ctx context.Context) ([]model.Message, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if !s.hasMore {
		s.mu.Unlock()
		return nil, nil
	}
	pageNo := s.nextPage
	s.mu.Unlock()

	page, err := s.fetcher.FetchPage(ctx, s.conversationID, pageNo, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("load page %d of %s: %w", pageNo, s.conversationID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added := s.mergeLocked(page.Messages)
	s.nextPage = pageNo + 1
	s.hasMore = page.HasMore
	return added, nil
}

// Sync re-reads the newest page without moving the history cursor. Used after
// a reconnect to pick up messages pushed while the channel was down. It returns
// the messages the page added and every page message now in the log, whose
// reactions may have changed in the meantime.
func (s *Store) Sync(ctx context.Context) (added, current []model.Message, err error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		return nil, nil, ErrNotLoaded
	}

	page, err := s.fetcher.FetchPage(ctx, s.conversationID, 1, s.pageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("sync conversation %s: %w", s.conversationID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added, current = s.mergePageLocked(page.Messages)
	return added, current, nil
}

func (s *Store) mergeLocked(wire []protocol.Message) []model.Message {
	added, _ := s.mergePageLocked(wire)
	return added
}

func (s *Store) mergePageLocked(wire []protocol.Message) (added, current []model.Message) {
	for _, m := range wire {
		if m.ConversationID != "" && m.ConversationID != s.conversationID {
			continue
		}
		if _, gone := s.tombstones[m.ID]; gone && m.ID != "" {
			continue
		}
		msg, inserted := s.appendLocked(model.FromWire(m))
		if inserted {
			added = append(added, msg)
		}
		current = append(current, msg)
	}
	s.sortLocked()
	return added, current
}

// Append merges msg into the log and reports whether it created a new entry.
// A message whose id or client nonce is already present updates that entry
// in place; a tombstoned id is ignored.
func (s *Store) Append(msg model.Message) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, inserted := s.appendLocked(msg)
	s.sortLocked()
	return stored, inserted
}

func (s *Store) appendLocked(msg model.Message) (model.Message, bool) {
	if msg.ID != "" {
		if _, gone := s.tombstones[msg.ID]; gone {
			return msg, false
		}
	}

	existing := s.lookupLocked(msg)
	if existing == nil {
		s.seq++
		e := &entry{msg: msg, seq: s.seq}
		s.entries = append(s.entries, e)
		s.indexLocked(e)
		return e.msg, true
	}

	// A pending or failed copy never overwrites what the backend confirmed.
	if existing.msg.State == model.Confirmed && msg.State != model.Confirmed {
		return existing.msg, false
	}
	if len(msg.Reactions) == 0 {
		msg.Reactions = existing.msg.Reactions
	}
	if msg.ClientID == "" {
		msg.ClientID = existing.msg.ClientID
	}
	existing.msg = msg
	s.indexLocked(existing)
	return existing.msg, false
}

func (s *Store) lookupLocked(msg model.Message) *entry {
	if msg.ID != "" {
		if e, ok := s.byID[msg.ID]; ok {
			return e
		}
	}
	if msg.ClientID != "" {
		if e, ok := s.byClientID[msg.ClientID]; ok {
			return e
		}
	}
	return nil
}

func (s *Store) indexLocked(e *entry) {
	if e.msg.ID != "" {
		s.byID[e.msg.ID] = e
	}
	if e.msg.ClientID != "" {
		s.byClientID[e.msg.ClientID] = e
	}
}

// sortLocked orders by createdAt; entries with equal timestamps keep their
// insertion order.
func (s *Store) sortLocked() {
	slices.SortFunc(s.entries, func(a, b *entry) int {
		if c := a.msg.CreatedAt.Compare(b.msg.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
}

// AddPending records a locally composed message before the backend has seen
// it. Its provisional timestamp is never earlier than the newest entry, so it
// sits at the tail until the authoritative time arrives.
func (s *Store) AddPending(senderID, senderName, content, replyToID string) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	if n := len(s.entries); n > 0 {
		if newest := s.entries[n-1].msg.CreatedAt; newest.After(at) {
			at = newest
		}
	}
	msg := model.Message{
		ClientID:       s.newNonce(),
		ConversationID: s.conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        content,
		ReplyToID:      replyToID,
		CreatedAt:      at,
		State:          model.Pending,
	}
	stored, _ := s.appendLocked(msg)
	s.sortLocked()
	return stored
}

// SetState changes the delivery state of a message that has not been
// confirmed yet, found by client nonce.
func (s *Store) SetState(clientID string, state model.DeliveryState) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byClientID[clientID]
	if !ok {
		return model.Message{}, fmt.Errorf("%w: client id %s", ErrUnknown, clientID)
	}
	if e.msg.State == model.Confirmed {
		return e.msg, nil
	}
	e.msg.State = state
	return e.msg, nil
}

// Remove tombstones id so late pushes or pages cannot bring it back.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstones[id] = struct{}{}

	e, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	if e.msg.ClientID != "" {
		delete(s.byClientID, e.msg.ClientID)
	}
	s.entries = slices.DeleteFunc(s.entries, func(x *entry) bool { return x == e })
	return true
}

func (s *Store) IsTombstoned(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tombstones[id]
	return ok
}

func (s *Store) Get(id string) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return model.Message{}, false
	}
	return e.msg, true
}

func (s *Store) ByClientID(clientID string) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byClientID[clientID]
	if !ok {
		return model.Message{}, false
	}
	return e.msg, true
}

// Messages returns a copy of the log, oldest first.
func (s *Store) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.msg
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
