package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// UpdateEvent notifies subscribed clients that the published data changed,
// so they can refetch.
type UpdateEvent struct {
	Type          string    `json:"type"`
	CorrelationID string    `json:"correlationId"`
	At            time.Time `json:"at"`
}

// EventHub fans sync events out to websocket subscribers. Slow consumers
// have events dropped rather than blocking the broadcast.
type EventHub struct {
	logger Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	msgs chan []byte
}

func NewEventHub(logger Logger) *EventHub {
	return &EventHub{
		logger:      logger,
		subscribers: map[*subscriber]struct{}{},
	}
}

func (h *EventHub) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("websocket accept failed: %v", err)
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "subscription ended")

	sub := &subscriber{msgs: make(chan []byte, 8)}
	h.add(sub)
	defer h.remove(sub)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-sub.msgs:
			if err := writeWithTimeout(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

// Broadcast delivers event to every subscriber that has channel capacity.
func (h *EventHub) Broadcast(event UpdateEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.msgs <- payload:
		default:
		}
	}
}

func (h *EventHub) add(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
}

func (h *EventHub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, sub)
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, msg)
}
