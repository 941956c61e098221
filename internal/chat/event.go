// Package chat provides the live chat fan-out for active streams: a WebSocket
// gateway with per-stream rooms, plus a queue abstraction used to hand chat
// events to best-effort persistence consumers.
package chat

import "time"

// EventType enumerates the chat events flowing through the gateway and queue.
type EventType string

const (
	// EventTypeMessage is a chat message authored by a viewer.
	EventTypeMessage EventType = "message"
	// EventTypePresence marks a viewer joining or leaving a room.
	EventTypePresence EventType = "presence"
)

// Event is the wire representation forwarded to the persistence queue.
type Event struct {
	Type       EventType      `json:"type"`
	Message    *MessageEvent  `json:"message,omitempty"`
	Presence   *PresenceEvent `json:"presence,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// MessageEvent transports all information required to persist and display a
// chat message.
type MessageEvent struct {
	ID        string    `json:"id"`
	StreamID  string    `json:"streamId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// PresenceEvent describes a viewer entering or leaving a stream's room.
type PresenceEvent struct {
	StreamID string `json:"streamId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Joined   bool   `json:"joined"`
}
