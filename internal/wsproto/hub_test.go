package wsproto

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/corvid-labs/rowgen/internal/model"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func newTestServer(t *testing.T, hub *Hub, log *zap.Logger) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		defer hub.RemoveConn(conn)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			HandleFrame(hub, conn, raw, log)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialTestServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_SubscribeThenReceivesProgress(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	srv := newTestServer(t, hub, zaptest.NewLogger(t))
	conn := dialTestServer(t, srv)

	require.NoError(t, conn.WriteJSON(Subscribe{
		Message:      Message{Type: "SUBSCRIBE"},
		GenerationID: "gen_1_1",
	}))

	var ack Message
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "SUBSCRIBED", ack.Type)
	require.NotEmpty(t, ack.ID)

	hub.EmitProgress(model.ProgressEvent{
		GenerationID: "gen_1_1",
		DatasetID:    1,
		Completed:    1,
		Target:       5,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var progress Progress
	require.NoError(t, conn.ReadJSON(&progress))
	require.Equal(t, "generation-progress", progress.Type)
	require.Equal(t, int64(1), progress.Completed)
	require.Equal(t, int64(5), progress.Target)
}

func TestHub_WildcardSubscriberReceivesAnyGeneration(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	srv := newTestServer(t, hub, zaptest.NewLogger(t))
	conn := dialTestServer(t, srv)

	require.NoError(t, conn.WriteJSON(Subscribe{
		Message:      Message{Type: "SUBSCRIBE"},
		GenerationID: "*",
	}))
	var ack Message
	require.NoError(t, conn.ReadJSON(&ack))

	hub.EmitStatus(model.StatusEvent{GenerationID: "gen_anything", Status: "completed"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var status Status
	require.NoError(t, conn.ReadJSON(&status))
	require.Equal(t, "completed", status.Status)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	srv := newTestServer(t, hub, zaptest.NewLogger(t))
	conn := dialTestServer(t, srv)

	require.NoError(t, conn.WriteJSON(Subscribe{
		Message:      Message{Type: "SUBSCRIBE"},
		GenerationID: "gen_1_1",
	}))
	var ack Message
	require.NoError(t, conn.ReadJSON(&ack))

	require.NoError(t, conn.WriteJSON(Unsubscribe{
		Message: Message{Type: "UNSUBSCRIBE", ID: ack.ID},
	}))
	var unsubAck Message
	require.NoError(t, conn.ReadJSON(&unsubAck))
	require.Equal(t, "UNSUBSCRIBED", unsubAck.Type)

	hub.EmitStatus(model.StatusEvent{GenerationID: "gen_1_1", Status: "completed"})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "unsubscribed connection should not receive further frames")
}
