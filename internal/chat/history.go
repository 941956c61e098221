package chat

import (
	"sync"
)

const defaultHistoryLimit = 100

// History is a queue consumer that buffers the most recent messages per
// stream so late joiners can replay what they missed. It is best-effort by
// design: only events observed while the consumer runs are retained.
type History struct {
	limit int

	mu       sync.RWMutex
	messages map[string][]MessageEvent

	stop   chan struct{}
	closed sync.Once
}

// NewHistory starts a consumer on the queue buffering up to limit messages
// per stream. Call Close to detach from the queue.
func NewHistory(queue Queue, limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	h := &History{
		limit:    limit,
		messages: make(map[string][]MessageEvent),
		stop:     make(chan struct{}),
	}
	sub := queue.Subscribe()
	go h.consume(sub)
	return h
}

func (h *History) consume(sub Subscription) {
	defer sub.Close()
	for {
		select {
		case <-h.stop:
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if event.Type != EventTypeMessage || event.Message == nil {
				continue
			}
			h.record(*event.Message)
		}
	}
}

func (h *History) record(message MessageEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	buffer := append(h.messages[message.StreamID], message)
	if len(buffer) > h.limit {
		buffer = buffer[len(buffer)-h.limit:]
	}
	h.messages[message.StreamID] = buffer
}

// Messages returns a copy of the buffered messages for the stream in arrival
// order.
func (h *History) Messages(streamID string) []MessageEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	buffer := h.messages[streamID]
	out := make([]MessageEvent, len(buffer))
	copy(out, buffer)
	return out
}

// Forget drops the buffered history for a stream, typically after it ends.
func (h *History) Forget(streamID string) {
	h.mu.Lock()
	delete(h.messages, streamID)
	h.mu.Unlock()
}

// Close detaches the consumer from the queue.
func (h *History) Close() {
	h.closed.Do(func() {
		close(h.stop)
	})
}
