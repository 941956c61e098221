package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"cookstream/internal/models"
	"cookstream/internal/observability/metrics"
)

// MaxMessageLength caps chat message text.
const MaxMessageLength = 500

// Store exposes the read-only operations the gateway requires from the
// backing datastore.
type Store interface {
	GetStream(id string) (models.LiveStream, bool)
	GetUser(id string) (models.User, bool)
}

// GatewayConfig configures a chat Gateway.
type GatewayConfig struct {
	Queue  Queue
	Store  Store
	Logger *slog.Logger
	// HeartbeatInterval controls how often ping frames are sent to
	// connected clients. Zero disables heartbeats.
	HeartbeatInterval time.Duration
}

// Gateway coordinates live chat fan-out, managing WebSocket clients in
// per-stream rooms and publishing events to the configured queue.
type Gateway struct {
	queue  Queue
	store  Store
	logger *slog.Logger

	heartbeatInterval time.Duration

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// NewGateway initialises a gateway using the provided configuration.
func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		queue:             cfg.Queue,
		store:             cfg.Store,
		logger:            logger.With("component", "chat"),
		heartbeatInterval: cfg.HeartbeatInterval,
		rooms:             make(map[string]map[*client]struct{}),
	}
}

// HandleConnection upgrades the HTTP request to a WebSocket connection for
// the authenticated user.
func (g *Gateway) HandleConnection(w http.ResponseWriter, r *http.Request, user models.User) {
	conn, err := Accept(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-r.Context().Done()
		cancel()
	}()

	c := &client{
		gateway: g,
		conn:    conn,
		user:    user,
		send:    make(chan outboundMessage, 16),
		rooms:   make(map[string]struct{}),
		cancel:  cancel,
	}

	go c.writeLoop()
	if g.heartbeatInterval > 0 {
		go c.heartbeatLoop(ctx, g.heartbeatInterval)
	}
	go c.readLoop(ctx)
}

// CreateMessage generates a chat message authored by the given user and
// broadcasts it to the stream's room. The stream must be live.
func (g *Gateway) CreateMessage(ctx context.Context, author models.User, streamID, text string) (MessageEvent, error) {
	if err := g.ensureRoomJoinable(streamID, author.ID); err != nil {
		return MessageEvent{}, err
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return MessageEvent{}, fmt.Errorf("message cannot be empty")
	}
	if len([]rune(trimmed)) > MaxMessageLength {
		return MessageEvent{}, fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	}
	id, err := generateMessageID()
	if err != nil {
		return MessageEvent{}, err
	}
	message := MessageEvent{
		ID:        id,
		StreamID:  streamID,
		UserID:    author.ID,
		UserName:  author.Name,
		Text:      trimmed,
		CreatedAt: time.Now().UTC(),
	}
	event := Event{Type: EventTypeMessage, Message: &message, OccurredAt: message.CreatedAt}
	g.broadcast(event)
	g.publish(ctx, event)
	metrics.Default().ObserveChatEvent("message")
	return message, nil
}

func (g *Gateway) publish(ctx context.Context, event Event) {
	if g.queue == nil {
		return
	}
	if err := g.queue.Publish(ctx, event); err != nil {
		g.logger.Warn("failed to publish chat event", "error", err)
	}
}

// ensureRoomJoinable gates chat on live streams: scheduled and ended streams
// have no room.
func (g *Gateway) ensureRoomJoinable(streamID, userID string) error {
	if g.store == nil {
		return fmt.Errorf("chat store unavailable")
	}
	stream, ok := g.store.GetStream(streamID)
	if !ok {
		return fmt.Errorf("stream %s not found", streamID)
	}
	if !stream.Active {
		return fmt.Errorf("stream is not live")
	}
	if _, ok := g.store.GetUser(userID); !ok {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}

func (g *Gateway) broadcast(event Event) {
	var streamID string
	switch {
	case event.Message != nil:
		streamID = event.Message.StreamID
	case event.Presence != nil:
		streamID = event.Presence.StreamID
	}
	if streamID == "" {
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	recipients := g.rooms[streamID]
	if len(recipients) == 0 {
		return
	}
	payload, err := json.Marshal(outboundMessage{Type: "event", Event: &event})
	if err != nil {
		g.logger.Error("failed to marshal chat event", "error", err)
		return
	}
	for client := range recipients {
		select {
		case client.send <- outboundMessage{Raw: payload}:
		default:
		}
	}
}

func (g *Gateway) announcePresence(user models.User, streamID string, joined bool) {
	event := Event{
		Type: EventTypePresence,
		Presence: &PresenceEvent{
			StreamID: streamID,
			UserID:   user.ID,
			UserName: user.Name,
			Joined:   joined,
		},
		OccurredAt: time.Now().UTC(),
	}
	g.broadcast(event)
	g.publish(context.Background(), event)
	if joined {
		metrics.Default().ObserveChatEvent("join")
	} else {
		metrics.Default().ObserveChatEvent("leave")
	}
}

func generateMessageID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type client struct {
	gateway *Gateway
	conn    *Conn
	user    models.User
	send    chan outboundMessage
	rooms   map[string]struct{}
	closed  sync.Once
	cancel  context.CancelFunc
}

type inboundMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
	Text     string `json:"text"`
}

type outboundMessage struct {
	Type  string `json:"type,omitempty"`
	Error string `json:"error,omitempty"`
	Event *Event `json:"event,omitempty"`
	Raw   []byte `json:"-"`
}

func (c *client) writeLoop() {
	defer c.close()
	for msg := range c.send {
		payload := msg.Raw
		if payload == nil {
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			payload = data
		}
		if err := c.conn.WriteText(payload); err != nil {
			return
		}
	}
}

func (c *client) heartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.Ping(nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *client) readLoop(ctx context.Context) {
	defer c.close()
	for {
		payload, err := c.conn.ReadMessage(ctx)
		if err != nil {
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.sendError("invalid payload")
			continue
		}
		switch msg.Type {
		case "join":
			c.handleJoin(msg.StreamID)
		case "leave":
			c.handleLeave(msg.StreamID, true)
		case "message":
			c.handleMessage(msg)
		default:
			c.sendError("unknown command")
		}
	}
}

func (c *client) handleJoin(streamID string) {
	if streamID == "" {
		c.sendError("stream required")
		return
	}
	if err := c.gateway.ensureRoomJoinable(streamID, c.user.ID); err != nil {
		c.sendError(err.Error())
		return
	}
	c.gateway.mu.Lock()
	if c.gateway.rooms[streamID] == nil {
		c.gateway.rooms[streamID] = make(map[*client]struct{})
	}
	c.gateway.rooms[streamID][c] = struct{}{}
	c.gateway.mu.Unlock()
	c.rooms[streamID] = struct{}{}

	payload, _ := json.Marshal(outboundMessage{Type: "ack"})
	c.send <- outboundMessage{Raw: payload}
	c.gateway.announcePresence(c.user, streamID, true)
}

func (c *client) handleLeave(streamID string, announce bool) {
	if streamID == "" {
		return
	}
	c.gateway.mu.Lock()
	if clients := c.gateway.rooms[streamID]; clients != nil {
		delete(clients, c)
		if len(clients) == 0 {
			delete(c.gateway.rooms, streamID)
		}
	}
	c.gateway.mu.Unlock()
	delete(c.rooms, streamID)
	if announce {
		c.gateway.announcePresence(c.user, streamID, false)
	}
}

func (c *client) handleMessage(msg inboundMessage) {
	if msg.StreamID == "" {
		c.sendError("stream required")
		return
	}
	if _, joined := c.rooms[msg.StreamID]; !joined {
		c.sendError("join stream first")
		return
	}
	event, err := c.gateway.CreateMessage(context.Background(), c.user, msg.StreamID, msg.Text)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	ack := Event{Type: EventTypeMessage, Message: &event, OccurredAt: event.CreatedAt}
	payload, _ := json.Marshal(outboundMessage{Type: "ack", Event: &ack})
	c.send <- outboundMessage{Raw: payload}
}

func (c *client) sendError(message string) {
	payload, _ := json.Marshal(outboundMessage{Type: "error", Error: message})
	select {
	case c.send <- outboundMessage{Raw: payload}:
	default:
	}
}

func (c *client) close() {
	c.closed.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		for streamID := range c.rooms {
			c.handleLeave(streamID, false)
		}
		close(c.send)
		_ = c.conn.Close()
	})
}
