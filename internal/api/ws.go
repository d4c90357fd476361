package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/corvid-labs/rowgen/internal/wsproto"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades the connection and drives the subscribe/unsubscribe
// protocol against h.Hub for this connection's lifetime.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	defer h.Hub.RemoveConn(conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				if ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway {
					h.Log.Debug("ws closed", zap.Int("code", ce.Code))
				} else {
					h.Log.Warn("ws closed abnormally", zap.Int("code", ce.Code), zap.String("text", ce.Text))
				}
			} else {
				h.Log.Debug("ws read error", zap.Error(err))
			}
			return
		}
		wsproto.HandleFrame(h.Hub, conn, raw, h.Log)
	}
}
