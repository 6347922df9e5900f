// Package session orchestrates one open conversation. It owns the
// conversation's store, reaction reconciler and typing tracker, wires them to
// the shared push channel, and releases everything it acquired through a
// single teardown scope on Close.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"gosocialchat/internal/chatsync/convlist"
	"gosocialchat/internal/chatsync/model"
	"gosocialchat/internal/chatsync/reaction"
	"gosocialchat/internal/chatsync/store"
	"gosocialchat/internal/chatsync/transport"
	"gosocialchat/internal/chatsync/typing"
	"gosocialchat/internal/protocol"
)

var (
	ErrClosed       = errors.New("session closed")
	ErrEmptyMessage = errors.New("message is empty")
	ErrNotFailed    = errors.New("message is not in failed state")
)

const (
	laneBuffer    = 64
	searchLimit   = 20
	markReadAfter = 5 * time.Second
)

type Config struct {
	ConversationID string
	SelfID         string
	SelfName       string
	PageSize       int
	TypingTimeout  time.Duration
	Clock          clockwork.Clock
}

type Session struct {
	cfg     Config
	backend Backend
	ch      *transport.Channel
	list    *convlist.List
	logger  *slog.Logger

	store     *store.Store
	reactions *reaction.Reconciler
	typing    *typing.Tracker
	scope     *transport.Scope

	ctx     context.Context
	cancel  context.CancelFunc
	lane    chan reaction.Intent
	reads   chan struct{}
	changes chan struct{}

	mu      sync.Mutex
	closed  bool
	deleted bool
	unread  bool // arrivals not yet marked read on the backend
	wg      sync.WaitGroup
}

// Open loads the newest page of the conversation, subscribes to its push
// events and joins its room. list may be nil.
func Open(ctx context.Context, cfg Config, backend Backend, ch *transport.Channel, list *convlist.List) (*Session, error) {
	if cfg.ConversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	st := store.New(cfg.ConversationID, backend, cfg.PageSize)
	msgs, err := st.LoadInitial(ctx)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:       cfg,
		backend:   backend,
		ch:        ch,
		list:      list,
		logger:    slog.Default().With("component", "session", "conversation_id", cfg.ConversationID),
		store:     st,
		reactions: reaction.New(),
		typing:    typing.New(cfg.ConversationID, cfg.SelfID, ch, cfg.Clock, cfg.TypingTimeout),
		scope:     transport.NewScope(),
		ctx:       sctx,
		cancel:    cancel,
		lane:      make(chan reaction.Intent, laneBuffer),
		reads:     make(chan struct{}, 1),
		changes:   make(chan struct{}, 1),
	}
	s.seed(msgs)

	// Teardown runs in reverse: typing stop goes out while still in the room,
	// then handlers go, then the room, then background work, then whatever
	// arrived since the last mark read.
	s.scope.Add(func() { s.flushRead(context.Background()) })
	s.scope.Add(s.stopBackground)
	if list != nil {
		list.OnConversationOpened(cfg.ConversationID)
		s.scope.Add(func() {
			if list.OpenID() == cfg.ConversationID {
				list.OnConversationClosed()
			}
		})
	}
	s.scope.Add(func() { ch.LeaveRoom(cfg.ConversationID) })
	s.subscribe()
	s.scope.Add(s.typing.Close)

	ch.JoinRoom(cfg.ConversationID)

	s.wg.Add(2)
	go s.runLane()
	go s.runReads()

	if err := s.MarkRead(ctx); err != nil {
		s.logger.Warn("mark read on open failed", "error", err)
	}
	s.logger.Info("conversation opened", "messages", len(msgs))
	return s, nil
}

func (s *Session) subscribe() {
	id := s.cfg.ConversationID
	sc := s.scope

	sc.Track(s.ch.OnStateChange(func(state transport.State) {
		if state != transport.Authenticated {
			return
		}
		// membership does not survive a reconnect
		s.ch.JoinRoom(id)
		s.goBackground(s.resync)
	}))
	sc.Track(transport.NewMessage.Subscribe(s.ch, func(m protocol.Message) {
		if m.ConversationID != id {
			return
		}
		s.ingest(model.FromWire(m))
	}))
	onReaction := func(ev protocol.ReactionEvent) {
		if ev.ConversationID != id {
			return
		}
		if s.reactions.Apply(ev) {
			s.notify()
		}
	}
	sc.Track(transport.ReactionAdded.Subscribe(s.ch, onReaction))
	sc.Track(transport.ReactionRemoved.Subscribe(s.ch, onReaction))
	sc.Track(transport.TypingStart.Subscribe(s.ch, func(ev protocol.TypingEvent) {
		if s.typing.SetTyping(ev.ConversationID, ev.UserID, true) {
			s.notify()
		}
	}))
	sc.Track(transport.TypingStop.Subscribe(s.ch, func(ev protocol.TypingEvent) {
		if s.typing.SetTyping(ev.ConversationID, ev.UserID, false) {
			s.notify()
		}
	}))
	sc.Track(transport.MessageDeleted.Subscribe(s.ch, func(ev protocol.MessageDeletedEvent) {
		if ev.ConversationID != id {
			return
		}
		s.forget(ev.MessageID)
	}))
	sc.Track(transport.ConversationDeleted.Subscribe(s.ch, func(ev protocol.ConversationDeletedEvent) {
		if ev.ConversationID != id {
			return
		}
		s.mu.Lock()
		s.deleted = true
		s.unread = false
		s.mu.Unlock()
		s.notify()
	}))
}

// ingest merges a confirmed message from any path.
func (s *Session) ingest(msg model.Message) model.Message {
	stored, inserted := s.store.Append(msg)
	if stored.ID != "" {
		s.reactions.Seed(stored.ID, msg.Reactions)
	}
	if inserted {
		s.arrived(stored)
	}
	s.typing.OnMessageConfirmed()
	s.notify()
	return stored
}

// arrived queues a mark read for a message someone else sent while the
// conversation is open; the backend counts it as unread otherwise.
func (s *Session) arrived(msg model.Message) {
	if msg.SenderID == s.cfg.SelfID || msg.State != model.Confirmed {
		return
	}
	s.mu.Lock()
	s.unread = true
	s.mu.Unlock()
	select {
	case s.reads <- struct{}{}:
	default:
	}
}

func (s *Session) seed(msgs []model.Message) {
	for _, m := range msgs {
		if m.ID != "" {
			s.reactions.Seed(m.ID, m.Reactions)
		}
	}
}

func (s *Session) forget(messageID string) {
	s.store.Remove(messageID)
	s.reactions.Forget(messageID)
	s.notify()
}

func (s *Session) resync(ctx context.Context) {
	added, current, err := s.store.Sync(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("resync after reconnect failed", "error", err)
		}
		return
	}
	// reactions on known messages may have changed while offline
	s.seed(current)
	for _, m := range added {
		s.arrived(m)
	}
	if len(added) > 0 {
		s.typing.OnMessageConfirmed()
	}
	s.notify()
	s.logger.Debug("resynced after reconnect", "added", len(added))
}

func (s *Session) goBackground(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

func (s *Session) stopBackground() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// runLane issues reaction requests one at a time in intent order, so the
// backend versions them in the order the user made them.
func (s *Session) runLane() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case intent := <-s.lane:
			ev, err := s.backend.SetReaction(s.ctx, s.cfg.ConversationID, intent.MessageID, intent.Request())
			if err != nil {
				s.logger.Warn("reaction request failed, rolling back", "message_id", intent.MessageID, "error", err)
				s.reactions.Fail(intent)
			} else {
				s.reactions.Confirm(intent, *ev)
			}
			s.notify()
		}
	}
}

// runReads marks the conversation read after arrivals. Bursts coalesce into
// one request.
func (s *Session) runReads() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.reads:
			s.flushRead(s.ctx)
		}
	}
}

func (s *Session) flushRead(ctx context.Context) {
	s.mu.Lock()
	if !s.unread {
		s.mu.Unlock()
		return
	}
	s.unread = false
	s.mu.Unlock()

	if err := s.MarkRead(ctx); err != nil {
		s.mu.Lock()
		s.unread = true
		s.mu.Unlock()
		if ctx.Err() == nil {
			s.logger.Warn("mark read failed", "error", err)
		}
	}
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Changes signals (coalesced) that Messages or TypingUsers may have changed.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) ConversationID() string {
	return s.cfg.ConversationID
}

// Send adds content as a pending message and posts it. On failure the
// message stays in the log as Failed and can be retried.
func (s *Session) Send(ctx context.Context, content string) (model.Message, error) {
	return s.compose(ctx, content, "")
}

func (s *Session) Reply(ctx context.Context, replyToID, content string) (model.Message, error) {
	if _, ok := s.store.Get(replyToID); !ok {
		return model.Message{}, fmt.Errorf("reply to %s: %w", replyToID, store.ErrUnknown)
	}
	return s.compose(ctx, content, replyToID)
}

func (s *Session) compose(ctx context.Context, content, replyToID string) (model.Message, error) {
	if s.isClosed() {
		return model.Message{}, ErrClosed
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Message{}, ErrEmptyMessage
	}
	pending := s.store.AddPending(s.cfg.SelfID, s.cfg.SelfName, content, replyToID)
	s.notify()
	return s.deliver(ctx, pending)
}

// Retry posts a failed message again with the same client nonce.
func (s *Session) Retry(ctx context.Context, clientID string) (model.Message, error) {
	msg, ok := s.store.ByClientID(clientID)
	if !ok {
		return model.Message{}, fmt.Errorf("retry %s: %w", clientID, store.ErrUnknown)
	}
	if msg.State != model.Failed {
		return msg, ErrNotFailed
	}
	msg, err := s.store.SetState(clientID, model.Pending)
	if err != nil {
		return model.Message{}, err
	}
	s.notify()
	return s.deliver(ctx, msg)
}

func (s *Session) deliver(ctx context.Context, msg model.Message) (model.Message, error) {
	transport.SendMessageMirror.Publish(s.ch, protocol.SendMessageEvent{
		ConversationID: s.cfg.ConversationID,
		ClientID:       msg.ClientID,
		Content:        msg.Content,
		ReplyToID:      msg.ReplyToID,
	})

	req := protocol.SendMessageRequest{Content: msg.Content, ClientID: msg.ClientID}
	var (
		res *protocol.Message
		err error
	)
	if msg.ReplyToID != "" {
		res, err = s.backend.Reply(ctx, s.cfg.ConversationID, msg.ReplyToID, req)
	} else {
		res, err = s.backend.SendMessage(ctx, s.cfg.ConversationID, req)
	}
	if err != nil {
		failed, _ := s.store.SetState(msg.ClientID, model.Failed)
		s.notify()
		return failed, fmt.Errorf("send message: %w", err)
	}

	if res.ClientID == "" {
		res.ClientID = msg.ClientID
	}
	s.typing.OnLocalIdle()
	stored := s.ingest(model.FromWire(*res))
	if s.list != nil {
		s.list.OnMessageArrived(s.cfg.ConversationID, stored)
	}
	return stored, nil
}

// ToggleReaction applies the tap locally right away and queues the request.
func (s *Session) ToggleReaction(messageID, emoji string) (reaction.Intent, error) {
	if _, ok := s.store.Get(messageID); !ok {
		return reaction.Intent{}, fmt.Errorf("react to %s: %w", messageID, store.ErrUnknown)
	}
	if s.isClosed() {
		return reaction.Intent{}, ErrClosed
	}
	intent := s.reactions.Toggle(messageID, s.cfg.SelfID, s.cfg.SelfName, emoji)
	s.notify()

	topic := transport.ReactionAdded
	if intent.Remove() {
		topic = transport.ReactionRemoved
	}
	topic.Publish(s.ch, protocol.ReactionEvent{
		ConversationID: s.cfg.ConversationID,
		MessageID:      messageID,
		UserID:         s.cfg.SelfID,
		UserName:       s.cfg.SelfName,
		Emoji:          intent.Emoji,
	})

	select {
	case s.lane <- intent:
		return intent, nil
	case <-s.ctx.Done():
		s.reactions.Fail(intent)
		return intent, ErrClosed
	}
}

// DeleteMessage unsends one of the user's messages.
func (s *Session) DeleteMessage(ctx context.Context, messageID string) error {
	if err := s.backend.DeleteMessage(ctx, s.cfg.ConversationID, messageID); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	s.forget(messageID)
	return nil
}

// DeleteConversation removes the conversation for the user and drops it from
// the list. The session is left in the deleted state; callers close it.
func (s *Session) DeleteConversation(ctx context.Context) error {
	if err := s.backend.DeleteConversation(ctx, s.cfg.ConversationID); err != nil {
		return fmt.Errorf("delete conversation %s: %w", s.cfg.ConversationID, err)
	}
	s.mu.Lock()
	s.deleted = true
	s.unread = false
	s.mu.Unlock()
	if s.list != nil {
		s.list.Remove(s.cfg.ConversationID)
	}
	s.notify()
	return nil
}

// LoadOlder fetches the next page of history and returns what it added.
func (s *Session) LoadOlder(ctx context.Context) ([]model.Message, error) {
	added, err := s.store.LoadOlder(ctx)
	if err != nil {
		return nil, err
	}
	s.seed(added)
	if len(added) > 0 {
		s.notify()
	}
	return added, nil
}

func (s *Session) HasMore() bool {
	return s.store.HasMore()
}

func (s *Session) Search(ctx context.Context, query string) ([]model.Message, error) {
	found, err := s.backend.Search(ctx, s.cfg.ConversationID, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	out := make([]model.Message, 0, len(found))
	for _, m := range found {
		out = append(out, model.FromWire(m))
	}
	return out, nil
}

// MarkRead clears the unread count on the backend, then in the list.
func (s *Session) MarkRead(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, markReadAfter)
	defer cancel()
	if err := s.backend.MarkRead(ctx, s.cfg.ConversationID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if s.list != nil {
		s.list.MarkRead(s.cfg.ConversationID)
	}
	return nil
}

func (s *Session) Input() {
	s.typing.OnLocalInput()
}

func (s *Session) Idle() {
	s.typing.OnLocalIdle()
}

// Messages returns the log, oldest first, with reactions as currently
// displayed.
func (s *Session) Messages() []model.Message {
	msgs := s.store.Messages()
	for i := range msgs {
		if msgs[i].ID != "" {
			msgs[i].Reactions = s.reactions.Reactions(msgs[i].ID)
		}
	}
	return msgs
}

func (s *Session) TypingUsers() []string {
	return s.typing.Remote()
}

// Deleted reports whether the conversation was deleted while open.
func (s *Session) Deleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close leaves the room, drops every handler, cancels the typing timer, stops
// background work and marks late arrivals read. It is safe to call more than
// once.
func (s *Session) Close() {
	s.scope.Close()
	s.logger.Info("conversation closed")
}
