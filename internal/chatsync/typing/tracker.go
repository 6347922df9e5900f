// Package typing tracks typing indicators for one open conversation: the local
// user's start/stop events, debounced by an inactivity timer, and the set of
// remote participants currently typing.
package typing

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"gosocialchat/internal/protocol"
)

const DefaultTimeout = 2 * time.Second

// Publisher emits push events. *transport.Channel satisfies it.
type Publisher interface {
	Publish(event protocol.EventName, payload interface{}) bool
}

type Tracker struct {
	conversationID string
	selfID         string
	pub            Publisher
	clock          clockwork.Clock
	timeout        time.Duration

	mu     sync.Mutex
	typing bool
	timer  clockwork.Timer
	gen    uint64
	remote map[string]struct{}
	closed bool
}

func New(conversationID, selfID string, pub Publisher, clock clockwork.Clock, timeout time.Duration) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		conversationID: conversationID,
		selfID:         selfID,
		pub:            pub,
		clock:          clock,
		timeout:        timeout,
		remote:         make(map[string]struct{}),
	}
}

// OnLocalInput is called on every keystroke. The first one after idle emits
// typing_start; each one pushes the stop back by the timeout.
func (t *Tracker) OnLocalInput() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	start := !t.typing
	t.typing = true
	t.rearmLocked()
	t.mu.Unlock()

	if start {
		t.emit(protocol.EventTypingStart)
	}
}

func (t *Tracker) rearmLocked() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.clock.AfterFunc(t.timeout, func() { t.expire(gen) })
}

// expire ignores fires from timers that were stopped or replaced after they
// had already started running.
func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	if t.gen != gen || !t.typing {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.timer = nil
	t.mu.Unlock()

	t.emit(protocol.EventTypingStop)
}

// OnLocalIdle stops typing right away, e.g. when the message is sent.
func (t *Tracker) OnLocalIdle() {
	t.mu.Lock()
	stop := t.stopLocked()
	t.mu.Unlock()
	if stop {
		t.emit(protocol.EventTypingStop)
	}
}

func (t *Tracker) stopLocked() bool {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	wasTyping := t.typing
	t.typing = false
	return wasTyping
}

func (t *Tracker) emit(event protocol.EventName) {
	t.pub.Publish(event, protocol.TypingEvent{ConversationID: t.conversationID, UserID: t.selfID})
}

func (t *Tracker) LocalTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// SetTyping records a remote typing event and reports whether the set changed.
// Events for other conversations and for the local user are ignored.
func (t *Tracker) SetTyping(conversationID, userID string, isTyping bool) bool {
	if conversationID != t.conversationID || userID == "" || userID == t.selfID {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, present := t.remote[userID]
	if isTyping == present {
		return false
	}
	if isTyping {
		t.remote[userID] = struct{}{}
	} else {
		delete(t.remote, userID)
	}
	return true
}

// OnMessageConfirmed clears the remote set: a sent message means its author
// stopped typing.
func (t *Tracker) OnMessageConfirmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.remote) == 0 {
		return false
	}
	clear(t.remote)
	return true
}

// Remote lists the remote users currently typing, sorted.
func (t *Tracker) Remote() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.remote))
	for id := range t.remote {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Close cancels the inactivity timer. If the local user was typing a final
// typing_stop is sent so peers do not keep a stale indicator.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	stop := t.stopLocked()
	clear(t.remote)
	t.mu.Unlock()
	if stop {
		t.emit(protocol.EventTypingStop)
	}
}
