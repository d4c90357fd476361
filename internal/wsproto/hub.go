package wsproto

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/corvid-labs/rowgen/internal/model"
)

// wildcard is the subscription GenerationID that receives every generation's
// frames, for dashboards that watch the whole server at once.
const wildcard = "*"

// Subscriber is one client's interest in a single generation_id (or the
// wildcard). A client subscribed to N generations holds N Subscribers.
type Subscriber struct {
	ID           string
	GenerationID string
	Conn         *websocket.Conn
}

// Hub fans out generation progress/status events to subscribed WebSocket
// connections. It implements model.ProgressSink directly so the generation
// manager never needs to know a WebSocket is on the other end.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber // by Subscriber.ID
	log  *zap.Logger
}

// NewHub returns an empty Hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{subs: make(map[string]*Subscriber), log: log}
}

// Subscribe registers sub, replacing any prior subscriber with the same ID.
func (h *Hub) Subscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub.ID] = sub
}

// Unsubscribe removes a previously registered subscriber by ID. Unknown IDs
// are a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// RemoveConn drops every subscription owned by conn, used on disconnect.
func (h *Hub) RemoveConn(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if sub.Conn == conn {
			delete(h.subs, id)
		}
	}
}

func (h *Hub) broadcast(generationID string, frame any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.GenerationID != wildcard && sub.GenerationID != generationID {
			continue
		}
		if err := sub.Conn.WriteJSON(frame); err != nil {
			h.log.Warn("ws write failed", zap.String("subscriber_id", sub.ID), zap.Error(err))
		}
	}
}

// EmitProgress implements model.ProgressSink.
func (h *Hub) EmitProgress(e model.ProgressEvent) {
	h.broadcast(e.GenerationID, Progress{
		Message:      Message{Type: "generation-progress"},
		GenerationID: e.GenerationID,
		DatasetID:    e.DatasetID,
		Row:          e.Row,
		Completed:    e.Completed,
		Target:       e.Target,
	})
}

// EmitStatus implements model.ProgressSink.
func (h *Hub) EmitStatus(e model.StatusEvent) {
	h.broadcast(e.GenerationID, Status{
		Message:      Message{Type: "generation-status"},
		GenerationID: e.GenerationID,
		Status:       e.Status,
		Text:         e.Message,
	})
}
