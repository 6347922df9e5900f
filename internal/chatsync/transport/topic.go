package transport

import (
	"encoding/json"
	"sync"

	"gosocialchat/internal/protocol"
)

// Subscription is the handle returned by every subscribe call.
type Subscription struct {
	once *sync.Once
	fn   func()
}

func newSubscription(fn func()) Subscription {
	return Subscription{once: new(sync.Once), fn: fn}
}

// Unsubscribe removes the handler. Calling it more than once is harmless.
func (s Subscription) Unsubscribe() {
	if s.once == nil {
		return
	}
	s.once.Do(s.fn)
}

// Topic is a push event name bound to its payload type.
type Topic[T any] struct {
	Event protocol.EventName
}

var (
	NewMessage          = Topic[protocol.Message]{protocol.EventNewMessage}
	ReactionAdded       = Topic[protocol.ReactionEvent]{protocol.EventReactionAdded}
	ReactionRemoved     = Topic[protocol.ReactionEvent]{protocol.EventReactionRemoved}
	TypingStart         = Topic[protocol.TypingEvent]{protocol.EventTypingStart}
	TypingStop          = Topic[protocol.TypingEvent]{protocol.EventTypingStop}
	MessageDeleted      = Topic[protocol.MessageDeletedEvent]{protocol.EventMessageDeleted}
	ConversationDeleted = Topic[protocol.ConversationDeletedEvent]{protocol.EventConversationDeleted}
	ServerError         = Topic[protocol.ErrorPayload]{protocol.EventError}

	SendMessageMirror = Topic[protocol.SendMessageEvent]{protocol.EventSendMessage}
)

// Subscribe decodes every frame of the topic and hands it to fn. Frames that
// do not decode are logged and skipped.
func (t Topic[T]) Subscribe(c *Channel, fn func(T)) Subscription {
	return c.subscribe(t.Event, func(raw json.RawMessage) {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.logger.Debug("dropping undecodable payload", "event", t.Event, "error", err)
			return
		}
		fn(payload)
	})
}

func (t Topic[T]) Publish(c *Channel, payload T) bool {
	return c.Publish(t.Event, payload)
}

// Scope collects teardown functions so one Close releases everything a
// conversation view acquired. Functions run in reverse order of registration.
type Scope struct {
	mu     sync.Mutex
	fns    []func()
	closed bool
}

func NewScope() *Scope {
	return &Scope{}
}

// Add registers fn. On a closed scope fn runs immediately.
func (s *Scope) Add(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
}

func (s *Scope) Track(sub Subscription) {
	s.Add(sub.Unsubscribe)
}

// Close runs every registered function once.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
