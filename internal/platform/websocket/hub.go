// Package websocket is the live-notification channel behind /ws. Clients
// connect anonymously, authenticate with a bearer access token, and then
// receive presence, health and clinical workflow events.
package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/platform/auth"
	"github.com/shorouk/radiology/internal/platform/metrics"
)

// Inbound message types.
const (
	TypeAuthenticate   = "authenticate"
	TypePing           = "ping"
	TypeSubscribe      = "subscribe"
	TypeUnsubscribe    = "unsubscribe"
	TypeSystemHealth   = "system_health"
	TypeGetActiveUsers = "get_active_users"
)

// Outbound message types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeAuthenticated         = "authenticated"
	TypeAuthenticationFailed  = "authentication_failed"
	TypePong                  = "pong"
	TypeSubscribed            = "subscribed"
	TypeUnsubscribed          = "unsubscribed"
	TypeSystemHealthUpdate    = "system_health_update"
	TypeActiveUsers           = "active_users"
	TypeUserConnected         = "user_connected"
	TypeUserDisconnected      = "user_disconnected"
	TypeError                 = "error"
)

// Domain event types and the channels they are published on.
const (
	EventNursingSubmitted   = "nursing_assessment_submitted"
	EventRadiologySubmitted = "radiology_assessment_submitted"

	ChannelNursing   = "nursing"
	ChannelRadiology = "radiology"
)

// Message is the envelope for every frame in both directions. Timestamp is
// Unix milliseconds.
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ClientMessage is an inbound frame; the payload is decoded per type.
type ClientMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Event is a domain notification published by the services after commit.
type Event struct {
	Type    string
	Channel string
	Payload interface{}
}

// EventPublisher is what the services depend on. A nil publisher is never
// passed; use NopPublisher when notifications are not wanted.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Conn abstracts a WebSocket connection for testability. WriteControl and
// Close may be called concurrently with the write pump; gorilla allows this.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// TokenVerifier checks bearer tokens sent in authenticate messages.
// *auth.TokenIssuer satisfies it.
type TokenVerifier interface {
	Parse(tokenStr, wantType string) (*auth.Claims, error)
}

// HealthFunc reports database health for system_health messages.
type HealthFunc func(ctx context.Context) error

// Client is one connection. Identity fields are empty until the client
// authenticates.
type Client struct {
	ID          string
	UserID      string
	Username    string
	Role        string
	IPAddress   string
	UserAgent   string
	ConnectedAt time.Time
	Send        chan []byte

	conn     Conn
	channels map[string]struct{}
	lastSeen time.Time
}

func NewClient(conn Conn, ip, userAgent string, now time.Time) *Client {
	return &Client{
		ID:          "client_" + uuid.NewString(),
		IPAddress:   ip,
		UserAgent:   userAgent,
		ConnectedAt: now,
		Send:        make(chan []byte, 64),
		conn:        conn,
		channels:    make(map[string]struct{}),
		lastSeen:    now,
	}
}

func (c *Client) authenticated() bool { return c.UserID != "" }

type Config struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	HealthInterval time.Duration
	MaxMessageSize int64
}

func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		PongTimeout:    30 * time.Second,
		HealthInterval: 60 * time.Second,
		MaxMessageSize: 1024,
	}
}

// Hub is the connection registry. Every access to the client and channel
// maps goes through mu.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[*Client]struct{}

	cfg     Config
	tokens  TokenVerifier
	health  HealthFunc
	metrics *metrics.Metrics
	logger  zerolog.Logger
	started time.Time
	now     func() time.Time
}

func NewHub(cfg Config, tokens TokenVerifier, health HealthFunc, m *metrics.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[*Client]struct{}),
		cfg:      cfg,
		tokens:   tokens,
		health:   health,
		metrics:  m,
		logger:   logger.With().Str("component", "websocket").Logger(),
		started:  time.Now(),
		now:      time.Now,
	}
}

// Register adds a client and greets it with connection_established.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.metrics.WSConnected()
	h.logger.Debug().Str("client_id", client.ID).Str("remote_ip", client.IPAddress).Msg("client connected")

	h.Send(client, Message{
		Type: TypeConnectionEstablished,
		Payload: map[string]string{
			"clientId": client.ID,
			"message":  "Connected to Al-Shorouk Radiology System",
		},
	})
}

// Unregister removes a client, closes its send channel and tells the others
// when an authenticated user leaves. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	for ch := range client.channels {
		h.removeFromChannel(ch, client)
	}
	close(client.Send)
	h.mu.Unlock()

	h.metrics.WSDisconnected()
	h.logger.Debug().Str("client_id", client.ID).Str("user_id", client.UserID).Msg("client disconnected")

	if client.authenticated() {
		h.Broadcast(Message{
			Type:    TypeUserDisconnected,
			Payload: map[string]string{"userId": client.UserID},
		}, client.ID)
	}
}

// must hold mu
func (h *Hub) removeFromChannel(ch string, client *Client) {
	if subs, ok := h.channels[ch]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.channels, ch)
		}
	}
}

// Send queues msg for one client. A full buffer drops the message.
func (h *Hub) Send(client *Client, msg Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.enqueue(client, data)
}

// Broadcast queues msg for every client except excludeID.
func (h *Hub) Broadcast(msg Message, excludeID string) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, client := range h.clients {
		if id == excludeID {
			continue
		}
		h.enqueue(client, data)
	}
}

// Publish delivers a domain event to authenticated clients subscribed to its
// channel.
func (h *Hub) Publish(_ context.Context, event Event) error {
	data, ok := h.encode(Message{Type: event.Type, Payload: event.Payload})
	if !ok {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.channels[event.Channel] {
		if client.authenticated() {
			h.enqueue(client, data)
		}
	}
	return nil
}

// must hold mu (read or write)
func (h *Hub) enqueue(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn().Str("client_id", client.ID).Msg("send buffer full, message dropped")
	}
}

func (h *Hub) encode(msg Message) ([]byte, bool) {
	if msg.Timestamp == 0 {
		msg.Timestamp = h.now().UnixMilli()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("marshal message")
		return nil, false
	}
	return data, true
}

// Touch records liveness for a client (pong, ping or protocol ping).
func (h *Hub) Touch(client *Client) {
	h.mu.Lock()
	client.lastSeen = h.now()
	h.mu.Unlock()
}

// HandleMessage dispatches one raw inbound frame.
func (h *Hub) HandleMessage(ctx context.Context, client *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(client, "Failed to process message")
		return
	}
	if msg.Type == "" {
		h.sendError(client, "Invalid message format")
		return
	}

	switch msg.Type {
	case TypeAuthenticate:
		h.authenticate(client, msg.Payload)
	case TypePing:
		h.Touch(client)
		h.Send(client, Message{Type: TypePong})
	case TypeSubscribe:
		h.subscribe(client, msg.Payload, true)
	case TypeUnsubscribe:
		h.subscribe(client, msg.Payload, false)
	case TypeSystemHealth:
		h.Send(client, Message{Type: TypeSystemHealth, Payload: h.healthPayload(ctx)})
	case TypeGetActiveUsers:
		users := h.ActiveUsers()
		h.Send(client, Message{
			Type:    TypeActiveUsers,
			Payload: map[string]interface{}{"users": users, "count": len(users)},
		})
	default:
		h.sendError(client, "Unknown message type: "+msg.Type)
	}
}

func (h *Hub) sendError(client *Client, text string) {
	h.Send(client, Message{Type: TypeError, Payload: map[string]string{"message": text}})
}

func (h *Hub) authFailed(client *Client, text string) {
	h.Send(client, Message{Type: TypeAuthenticationFailed, Payload: map[string]string{"message": text}})
}

func (h *Hub) authenticate(client *Client, raw json.RawMessage) {
	var p struct {
		Token string `json:"token"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &p)
	}
	if p.Token == "" {
		h.authFailed(client, "Token is required")
		return
	}

	claims, err := h.tokens.Parse(p.Token, auth.TokenTypeAccess)
	if err != nil {
		if err == auth.ErrWrongTokenType {
			h.authFailed(client, "Invalid token type")
		} else {
			h.authFailed(client, "Invalid token")
		}
		return
	}

	h.mu.Lock()
	client.UserID = claims.Subject
	client.Username = claims.Username
	client.Role = claims.Role
	h.mu.Unlock()

	who := map[string]string{
		"userId":   claims.Subject,
		"username": claims.Username,
		"role":     claims.Role,
	}
	h.Send(client, Message{Type: TypeAuthenticated, Payload: who})
	h.Broadcast(Message{Type: TypeUserConnected, Payload: who}, client.ID)
	h.logger.Info().Str("client_id", client.ID).Str("user_id", claims.Subject).Msg("client authenticated")
}

func (h *Hub) subscribe(client *Client, raw json.RawMessage, add bool) {
	var p struct {
		Channels []string `json:"channels"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &p)
	}
	if p.Channels == nil {
		p.Channels = []string{}
	}

	h.mu.Lock()
	for _, ch := range p.Channels {
		if add {
			if h.channels[ch] == nil {
				h.channels[ch] = make(map[*Client]struct{})
			}
			h.channels[ch][client] = struct{}{}
			client.channels[ch] = struct{}{}
		} else {
			h.removeFromChannel(ch, client)
			delete(client.channels, ch)
		}
	}
	h.mu.Unlock()

	typ := TypeSubscribed
	if !add {
		typ = TypeUnsubscribed
	}
	h.Send(client, Message{Type: typ, Payload: map[string][]string{"channels": p.Channels}})
}

// ActiveUser is one authenticated connection in an active_users reply.
type ActiveUser struct {
	UserID      string    `json:"userId"`
	Role        string    `json:"role"`
	ConnectedAt time.Time `json:"connectedAt"`
}

func (h *Hub) ActiveUsers() []ActiveUser {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]ActiveUser, 0, len(h.clients))
	for _, c := range h.clients {
		if c.authenticated() && c.Role != "" {
			users = append(users, ActiveUser{UserID: c.UserID, Role: c.Role, ConnectedAt: c.ConnectedAt})
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ConnectedAt.Before(users[j].ConnectedAt) })
	return users
}

// Stats is the websocket half of a health payload.
type Stats struct {
	TotalConnections         int     `json:"totalConnections"`
	AuthenticatedConnections int     `json:"authenticatedConnections"`
	UptimeSeconds            float64 `json:"uptime"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{TotalConnections: len(h.clients), UptimeSeconds: h.now().Sub(h.started).Seconds()}
	for _, c := range h.clients {
		if c.authenticated() {
			s.AuthenticatedConnections++
		}
	}
	return s
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ChannelCount(ch string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[ch])
}

func (h *Hub) healthPayload(ctx context.Context) map[string]interface{} {
	db := map[string]string{"status": "healthy"}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			db["status"] = "unhealthy"
		}
	}
	return map[string]interface{}{"database": db, "websocket": h.Stats()}
}

// sweep drops clients not seen within PongTimeout and pings the rest.
func (h *Hub) sweep() {
	now := h.now()

	var stale, live []*Client
	h.mu.RLock()
	for _, c := range h.clients {
		if now.Sub(c.lastSeen) > h.cfg.PongTimeout {
			stale = append(stale, c)
		} else {
			live = append(live, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Info().Str("client_id", c.ID).Msg("client timed out")
		h.Unregister(c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
	for _, c := range live {
		if c.conn == nil {
			continue
		}
		if err := c.conn.WriteControl(gorillawebsocket.PingMessage, nil, now.Add(10*time.Second)); err != nil {
			h.logger.Debug().Err(err).Str("client_id", c.ID).Msg("ping failed")
		}
	}
}

// Run drives the heartbeat and the periodic health broadcast until ctx is
// cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()
	health := time.NewTicker(h.cfg.HealthInterval)
	defer health.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-ping.C:
			h.sweep()
		case <-health.C:
			h.Broadcast(Message{Type: TypeSystemHealthUpdate, Payload: h.healthPayload(ctx)}, "")
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	deadline := time.Now().Add(time.Second)
	for _, c := range all {
		if c.conn != nil {
			msg := gorillawebsocket.FormatCloseMessage(gorillawebsocket.CloseGoingAway, "Server shutting down")
			_ = c.conn.WriteControl(gorillawebsocket.CloseMessage, msg, deadline)
		}
		h.Unregister(c)
	}
}
