// Package hub is the websocket push side of chat-svc. Connections authenticate
// with their first frame, join conversation rooms and receive every chat event
// published for those rooms or addressed to their user.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"gosocialchat/internal/chat/events"
	"gosocialchat/internal/common"
	"gosocialchat/internal/config"
	"gosocialchat/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameBytes  = 65536
	defaultBuffer  = 256
	defaultAuthTTL = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type TokenValidator interface {
	ValidToken(token string) (*common.Claims, error)
}

type MembershipChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

type Options struct {
	SendBuffer   int
	EventsPerSec float64
	EventBurst   int
	AuthTimeout  time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SendBuffer:   cfg.Chat.SendBufferSize,
		EventsPerSec: cfg.Chat.ClientEventsPerSec,
		EventBurst:   cfg.Chat.ClientEventBurst,
	}
}

type Metrics struct {
	connections prometheus.Gauge
	received    *prometheus.CounterVec
	delivered   prometheus.Counter
	rateLimited prometheus.Counter
	slowClients prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "hub",
			Name:      "connections",
			Help:      "Authenticated websocket connections.",
		}),
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "hub",
			Name:      "frames_received_total",
			Help:      "Frames received from clients, by event name.",
		}, []string{"event"}),
		delivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "hub",
			Name:      "frames_delivered_total",
			Help:      "Frames queued to client connections.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "hub",
			Name:      "rate_limited_total",
			Help:      "Client frames rejected by the per-connection limiter.",
		}),
		slowClients: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "hub",
			Name:      "slow_clients_total",
			Help:      "Connections dropped because their send buffer was full.",
		}),
	}
}

// Client is one authenticated websocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	handle  string
	send    chan []byte
	limiter *rate.Limiter

	// guarded by hub.mu
	rooms  map[string]struct{}
	closed bool
}

type Hub struct {
	validator TokenValidator
	members   MembershipChecker
	opts      Options
	metrics   *Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{} // conversationID -> clients
	users   map[string]map[*Client]struct{} // userID -> clients
}

func NewHub(validator TokenValidator, members MembershipChecker, opts Options, metrics *Metrics) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultBuffer
	}
	if opts.EventsPerSec <= 0 {
		opts.EventsPerSec = 10
	}
	if opts.EventBurst <= 0 {
		opts.EventBurst = 20
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = defaultAuthTTL
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Hub{
		validator: validator,
		members:   members,
		opts:      opts,
		metrics:   metrics,
		logger:    slog.Default().With("component", "hub"),
		clients:   make(map[*Client]struct{}),
		rooms:     make(map[string]map[*Client]struct{}),
		users:     make(map[string]map[*Client]struct{}),
	}
}

// Name implements events.Observer.
func (h *Hub) Name() string {
	return "websocket-hub"
}

// Update implements events.Observer. The event goes to every connection joined
// to the conversation's room and every connection of each recipient, once per
// connection.
func (h *Hub) Update(event events.ChatEvent) error {
	data, err := protocol.Encode(event.Name, event.Payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make(map[*Client]struct{}, len(h.rooms[event.ConversationID]))
	for c := range h.rooms[event.ConversationID] {
		targets[c] = struct{}{}
	}
	for _, userID := range event.Recipients {
		for c := range h.users[userID] {
			targets[c] = struct{}{}
		}
	}
	slow := h.deliverLocked(targets, data)
	h.mu.RUnlock()

	h.dropSlow(slow)

	if event.Name == protocol.EventConversationDeleted {
		for _, userID := range event.Recipients {
			h.leaveAll(userID, event.ConversationID)
		}
	}
	return nil
}

// deliverLocked queues data on each target and returns the ones whose buffer
// was full. Caller holds h.mu.
func (h *Hub) deliverLocked(targets map[*Client]struct{}, data []byte) []*Client {
	var slow []*Client
	for c := range targets {
		if c.closed {
			continue
		}
		select {
		case c.send <- data:
			h.metrics.delivered.Inc()
		default:
			slow = append(slow, c)
		}
	}
	return slow
}

func (h *Hub) dropSlow(slow []*Client) {
	for _, c := range slow {
		h.metrics.slowClients.Inc()
		h.logger.Warn("send buffer full, dropping connection", "user_id", c.userID)
		h.unregister(c)
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	claims, ok := h.authenticate(conn)
	if !ok {
		conn.Close()
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		userID:  claims.UserID,
		handle:  claims.Handle,
		send:    make(chan []byte, h.opts.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.opts.EventsPerSec), h.opts.EventBurst),
		rooms:   make(map[string]struct{}),
	}
	h.register(client)
	client.sendEnvelope(protocol.EventAuthOK, protocol.AuthOK{UserID: claims.UserID, Handle: claims.Handle})

	go client.writePump()
	client.readPump(r.Context())
}

// authenticate expects an auth frame before AuthTimeout.
func (h *Hub) authenticate(conn *websocket.Conn) (*common.Claims, bool) {
	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(h.opts.AuthTimeout))

	_, data, err := conn.ReadMessage()
	if err != nil {
		h.logger.Debug("connection closed before auth", "error", err)
		return nil, false
	}

	reject := func(msg string) (*common.Claims, bool) {
		writeDirect(conn, protocol.EventError, protocol.ErrorPayload{Code: protocol.ErrCodeUnauthorized, Message: msg})
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg))
		return nil, false
	}

	env, err := protocol.ParseEnvelope(data)
	if err != nil || env.Event != protocol.EventAuth {
		return reject("first frame must be auth")
	}
	var req protocol.AuthRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.Token == "" {
		return reject("token is required")
	}
	claims, err := h.validator.ValidToken(req.Token)
	if err != nil {
		h.logger.Info("websocket auth rejected", "error", err)
		return reject("invalid or expired token")
	}
	return claims, true
}

func writeDirect(conn *websocket.Conn, event protocol.EventName, payload interface{}) {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*Client]struct{})
	}
	h.users[c.userID][c] = struct{}{}
	h.mu.Unlock()

	h.metrics.connections.Inc()
	h.logger.Info("client connected", "user_id", c.userID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	c.closed = true
	delete(h.clients, c)
	removeFrom(h.users, c.userID, c)
	for roomID := range c.rooms {
		removeFrom(h.rooms, roomID, c)
	}
	close(c.send)
	h.mu.Unlock()

	h.metrics.connections.Dec()
	h.logger.Info("client disconnected", "user_id", c.userID)
}

func removeFrom(index map[string]map[*Client]struct{}, key string, c *Client) {
	if set, ok := index[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(index, key)
		}
	}
}

func (h *Hub) join(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Client]struct{})
	}
	h.rooms[conversationID][c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

func (h *Hub) leave(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeFrom(h.rooms, conversationID, c)
	delete(c.rooms, conversationID)
}

func (h *Hub) leaveAll(userID, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.users[userID] {
		removeFrom(h.rooms, conversationID, c)
		delete(c.rooms, conversationID)
	}
}

// relay sends a client-originated frame to the other users in the room.
func (h *Hub) relay(from *Client, conversationID string, data []byte) {
	h.mu.RLock()
	targets := make(map[*Client]struct{})
	for c := range h.rooms[conversationID] {
		if c.userID != from.userID {
			targets[c] = struct{}{}
		}
	}
	slow := h.deliverLocked(targets, data)
	h.mu.RUnlock()
	h.dropSlow(slow)
}

func (h *Hub) inRoom(c *Client, conversationID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[conversationID]
	return ok
}

// RoomSize reports how many connections are joined to a conversation.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. Write pumps send a close frame on the way out.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (c *Client) sendEnvelope(event protocol.EventName, payload interface{}) {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		c.hub.logger.Error("encode frame", "event", event, "error", err)
		return
	}
	c.hub.mu.RLock()
	slow := c.hub.deliverLocked(map[*Client]struct{}{c: {}}, data)
	c.hub.mu.RUnlock()
	c.hub.dropSlow(slow)
}

func (c *Client) sendError(code, message string) {
	c.sendEnvelope(protocol.EventError, protocol.ErrorPayload{Code: code, Message: message})
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", "user_id", c.userID, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleFrame(ctx, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
