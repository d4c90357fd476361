package wsproto

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleFrame decodes one raw client frame and applies it to hub on behalf
// of conn, mirroring the teacher's HandleMessage switch.
func HandleFrame(hub *Hub, conn *websocket.Conn, raw []byte, log *zap.Logger) {
	msg, err := DecodeMessage(raw)
	if err != nil {
		_ = conn.WriteJSON(ErrorFrame{Message: Message{Type: "error"}, Error: "invalid JSON"})
		return
	}

	switch msg.Type {
	case "PING":
		_ = conn.WriteJSON(Message{Type: "PONG"})

	case "SUBSCRIBE":
		var sub Subscribe
		if err := json.Unmarshal(raw, &sub); err != nil || sub.GenerationID == "" {
			_ = conn.WriteJSON(ErrorFrame{Message: Message{Type: "error"}, Error: "missing generation_id"})
			return
		}
		subID := uuid.NewString()
		hub.Subscribe(&Subscriber{ID: subID, GenerationID: sub.GenerationID, Conn: conn})
		_ = conn.WriteJSON(Message{Type: "SUBSCRIBED", ID: subID})
		log.Debug("ws subscribed", zap.String("subscription_id", subID), zap.String("generation_id", sub.GenerationID))

	case "UNSUBSCRIBE":
		var unsub Unsubscribe
		if err := json.Unmarshal(raw, &unsub); err != nil {
			_ = conn.WriteJSON(ErrorFrame{Message: Message{Type: "error"}, Error: "invalid unsubscribe"})
			return
		}
		hub.Unsubscribe(unsub.ID)
		_ = conn.WriteJSON(Message{Type: "UNSUBSCRIBED", ID: unsub.ID})

	default:
		_ = conn.WriteJSON(ErrorFrame{Message: Message{Type: "error"}, Error: "unknown message type"})
	}
}
