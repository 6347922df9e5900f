// Package transport is the client side of the push channel: one websocket per
// process, authenticated with the first frame, with typed topics for the
// events the synchronization core consumes.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gosocialchat/internal/protocol"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Authenticated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

const (
	writeWait   = 10 * time.Second
	authTimeout = 10 * time.Second
	maxFrame    = 65536

	// The hub pings every 30s; two missed pings mean the link is gone.
	pongWait = 60 * time.Second
)

var ErrAuthRejected = errors.New("push channel authentication rejected")

// Channel owns the process-wide push connection. It is safe for concurrent
// use. Handlers run on the channel's read goroutine, in frame order.
type Channel struct {
	url      string
	dialer   *websocket.Dialer
	logger   *slog.Logger
	readWait time.Duration

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	nextID uint64
	topics map[protocol.EventName]map[uint64]func(json.RawMessage)
	states map[uint64]func(State)

	writeMu sync.Mutex
}

func NewChannel(url string) *Channel {
	return &Channel{
		url:      url,
		dialer:   websocket.DefaultDialer,
		logger:   slog.Default().With("component", "transport"),
		readWait: pongWait,
		topics:   make(map[protocol.EventName]map[uint64]func(json.RawMessage)),
		states:   make(map[uint64]func(State)),
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials and authenticates. It is a no-op while a connection is already
// up or being established.
func (c *Channel) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	listeners := c.listenersLocked()
	c.mu.Unlock()
	notify(listeners, Connecting)

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.setState(Disconnected, nil)
		return fmt.Errorf("dial push channel: %w", err)
	}
	conn.SetReadLimit(maxFrame)
	c.setState(Connected, conn)

	if err := c.authenticate(conn, token); err != nil {
		conn.Close()
		c.dropConn(conn)
		return err
	}

	c.keepAlive(conn)
	c.setState(Authenticated, conn)
	c.logger.Info("push channel authenticated", "url", c.url)
	go c.readLoop(conn)
	return nil
}

func (c *Channel) authenticate(conn *websocket.Conn, token string) error {
	frame, err := protocol.Encode(protocol.EventAuth, protocol.AuthRequest{Token: token})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(authTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("await auth reply: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		return fmt.Errorf("parse auth reply: %w", err)
	}
	switch env.Event {
	case protocol.EventAuthOK:
		return nil
	case protocol.EventError:
		var payload protocol.ErrorPayload
		_ = json.Unmarshal(env.Data, &payload)
		return fmt.Errorf("%w: %s", ErrAuthRejected, payload.Message)
	default:
		return fmt.Errorf("unexpected auth reply %q", env.Event)
	}
}

// Disconnect closes the connection. Room membership is not remembered.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	conn.Close()
	c.dropConn(conn)
}

// dropConn moves to Disconnected if conn is still the current connection.
func (c *Channel) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn || c.state == Disconnected {
		c.mu.Unlock()
		return
	}
	c.state = Disconnected
	c.conn = nil
	listeners := c.listenersLocked()
	c.mu.Unlock()

	c.logger.Info("push channel disconnected")
	notify(listeners, Disconnected)
}

func (c *Channel) setState(state State, conn *websocket.Conn) {
	c.mu.Lock()
	if c.state == state && c.conn == conn {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.conn = conn
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, state)
}

func (c *Channel) listenersLocked() []func(State) {
	listeners := make([]func(State), 0, len(c.states))
	for _, fn := range c.states {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []func(State), state State) {
	for _, fn := range listeners {
		fn(state)
	}
}

// Publish sends an event. Before authentication, or on a write failure, the
// event is dropped and Publish reports false.
func (c *Channel) Publish(event protocol.EventName, payload interface{}) bool {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != Authenticated || conn == nil {
		c.logger.Debug("publish dropped, not authenticated", "event", event)
		return false
	}

	frame, err := protocol.Encode(event, payload)
	if err != nil {
		c.logger.Error("encode frame", "event", event, "error", err)
		return false
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Warn("push channel write failed", "event", event, "error", err)
		conn.Close()
		c.dropConn(conn)
		return false
	}
	return true
}

func (c *Channel) JoinRoom(conversationID string) bool {
	return c.Publish(protocol.EventJoinRoom, protocol.RoomRequest{ConversationID: conversationID})
}

func (c *Channel) LeaveRoom(conversationID string) bool {
	return c.Publish(protocol.EventLeaveRoom, protocol.RoomRequest{ConversationID: conversationID})
}

// OnStateChange registers fn for every state transition. fn must not block.
func (c *Channel) OnStateChange(fn func(State)) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.states[id] = fn
	return newSubscription(func() {
		c.mu.Lock()
		delete(c.states, id)
		c.mu.Unlock()
	})
}

func (c *Channel) subscribe(event protocol.EventName, fn func(json.RawMessage)) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	if c.topics[event] == nil {
		c.topics[event] = make(map[uint64]func(json.RawMessage))
	}
	c.topics[event][id] = fn
	return newSubscription(func() {
		c.mu.Lock()
		delete(c.topics[event], id)
		if len(c.topics[event]) == 0 {
			delete(c.topics, event)
		}
		c.mu.Unlock()
	})
}

// HandlerCount reports the live subscriptions for event.
func (c *Channel) HandlerCount(event protocol.EventName) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.topics[event])
}

// keepAlive arms the read deadline. Server pings and frames push it out, so a
// half-open connection ends in a read timeout instead of hanging.
func (c *Channel) keepAlive(conn *websocket.Conn) {
	extend := func() { conn.SetReadDeadline(time.Now().Add(c.readWait)) }
	extend()
	conn.SetPingHandler(func(data string) error {
		extend()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		c.dropConn(conn)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				c.logger.Warn("push channel went silent", "wait", c.readWait)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.logger.Warn("push channel read failed", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.readWait))
		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			c.logger.Debug("ignoring malformed frame", "error", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env *protocol.Envelope) {
	c.mu.Lock()
	handlers := make([]func(json.RawMessage), 0, len(c.topics[env.Event]))
	for _, fn := range c.topics[env.Event] {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	if len(handlers) == 0 {
		c.logger.Debug("no subscribers", "event", env.Event)
		return
	}
	for _, fn := range handlers {
		fn(env.Data)
	}
}
