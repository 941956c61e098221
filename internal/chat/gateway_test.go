package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cookstream/internal/models"
)

type fakeChatStore struct {
	streams map[string]models.LiveStream
	users   map[string]models.User
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		streams: make(map[string]models.LiveStream),
		users:   make(map[string]models.User),
	}
}

func (f *fakeChatStore) GetStream(id string) (models.LiveStream, bool) {
	stream, ok := f.streams[id]
	return stream, ok
}

func (f *fakeChatStore) GetUser(id string) (models.User, bool) {
	user, ok := f.users[id]
	return user, ok
}

func newTestGateway(t *testing.T, queue Queue) (*Gateway, *fakeChatStore) {
	t.Helper()
	store := newFakeChatStore()
	store.users["user-1"] = models.User{ID: "user-1", Name: "Chef"}
	store.streams["live-1"] = models.LiveStream{ID: "live-1", UserID: "user-1", Active: true}
	store.streams["ended-1"] = models.LiveStream{ID: "ended-1", UserID: "user-1", Active: false}
	return NewGateway(GatewayConfig{Queue: queue, Store: store}), store
}

func TestCreateMessageTrimsAndPublishes(t *testing.T) {
	queue := NewMemoryQueue(16)
	sub := queue.Subscribe()
	defer sub.Close()
	gateway, _ := newTestGateway(t, queue)
	author := models.User{ID: "user-1", Name: "Chef"}

	message, err := gateway.CreateMessage(context.Background(), author, "live-1", "  great knife work  ")
	if err != nil {
		t.Fatalf("CreateMessage error: %v", err)
	}
	if message.Text != "great knife work" {
		t.Fatalf("text not trimmed: %q", message.Text)
	}
	if message.ID == "" || message.StreamID != "live-1" || message.UserName != "Chef" {
		t.Fatalf("incomplete message: %+v", message)
	}

	select {
	case event := <-sub.Events():
		if event.Type != EventTypeMessage || event.Message == nil || event.Message.ID != message.ID {
			t.Fatalf("wrong event on the queue: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("message was not published to the queue")
	}
}

func TestCreateMessageRejectsInvalidInput(t *testing.T) {
	gateway, _ := newTestGateway(t, NewMemoryQueue(16))
	author := models.User{ID: "user-1", Name: "Chef"}

	if _, err := gateway.CreateMessage(context.Background(), author, "missing", "hi"); err == nil {
		t.Fatal("expected an error for an unknown stream")
	}
	if _, err := gateway.CreateMessage(context.Background(), author, "ended-1", "hi"); err == nil {
		t.Fatal("expected an error for a stream that is not live")
	}
	if _, err := gateway.CreateMessage(context.Background(), models.User{ID: "ghost"}, "live-1", "hi"); err == nil {
		t.Fatal("expected an error for an unknown user")
	}
	if _, err := gateway.CreateMessage(context.Background(), author, "live-1", "   "); err == nil {
		t.Fatal("expected an error for blank text")
	}
	long := strings.Repeat("x", MaxMessageLength+1)
	if _, err := gateway.CreateMessage(context.Background(), author, "live-1", long); err == nil {
		t.Fatal("expected an error for oversized text")
	}
}

type envelope struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Event *Event `json:"event"`
}

func readEnvelope(t *testing.T, conn *Conn) envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	payload, err := conn.ReadMessage(ctx)
	if err != nil {
		t.Fatalf("ReadMessage error: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("unmarshal %q: %v", payload, err)
	}
	return env
}

func sendCommand(t *testing.T, conn *Conn, command map[string]string) {
	t.Helper()
	payload, err := json.Marshal(command)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	if err := conn.WriteText(payload); err != nil {
		t.Fatalf("WriteText error: %v", err)
	}
}

func TestGatewayJoinAndMessageOverWebSocket(t *testing.T) {
	queue := NewMemoryQueue(16)
	gateway, store := newTestGateway(t, queue)
	viewer := models.User{ID: "user-2", Name: "Fan"}
	store.users[viewer.ID] = viewer

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gateway.HandleConnection(w, r, viewer)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := Dial(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer conn.Close()

	sendCommand(t, conn, map[string]string{"type": "join", "streamId": "live-1"})
	if env := readEnvelope(t, conn); env.Type != "ack" {
		t.Fatalf("expected join ack, got %+v", env)
	}
	presence := readEnvelope(t, conn)
	if presence.Type != "event" || presence.Event == nil || presence.Event.Type != EventTypePresence {
		t.Fatalf("expected presence broadcast, got %+v", presence)
	}
	if presence.Event.Presence.UserID != viewer.ID || !presence.Event.Presence.Joined {
		t.Fatalf("wrong presence payload: %+v", presence.Event.Presence)
	}

	sendCommand(t, conn, map[string]string{"type": "message", "streamId": "live-1", "text": "hello room"})
	broadcast := readEnvelope(t, conn)
	if broadcast.Type != "event" || broadcast.Event == nil || broadcast.Event.Type != EventTypeMessage {
		t.Fatalf("expected message broadcast, got %+v", broadcast)
	}
	if broadcast.Event.Message.Text != "hello room" {
		t.Fatalf("wrong broadcast text: %q", broadcast.Event.Message.Text)
	}
	ack := readEnvelope(t, conn)
	if ack.Type != "ack" || ack.Event == nil || ack.Event.Message == nil {
		t.Fatalf("expected message ack with the stored event, got %+v", ack)
	}
}

func TestGatewayRejectsMessagesBeforeJoin(t *testing.T) {
	queue := NewMemoryQueue(16)
	gateway, store := newTestGateway(t, queue)
	viewer := models.User{ID: "user-2", Name: "Fan"}
	store.users[viewer.ID] = viewer

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gateway.HandleConnection(w, r, viewer)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := Dial(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer conn.Close()

	sendCommand(t, conn, map[string]string{"type": "message", "streamId": "live-1", "text": "too early"})
	if env := readEnvelope(t, conn); env.Type != "error" || env.Error == "" {
		t.Fatalf("expected an error envelope, got %+v", env)
	}

	sendCommand(t, conn, map[string]string{"type": "join", "streamId": "ended-1"})
	if env := readEnvelope(t, conn); env.Type != "error" {
		t.Fatalf("joining an ended stream should fail, got %+v", env)
	}

	sendCommand(t, conn, map[string]string{"type": "shout"})
	if env := readEnvelope(t, conn); env.Type != "error" {
		t.Fatalf("unknown commands should fail, got %+v", env)
	}
}
