package wsmonitor_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/lora-phy/internal/wsmonitor"
)

func TestHubBroadcastsToConnectedClient(t *testing.T) {
	hub := wsmonitor.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine time to register the client before
	// broadcasting, matching the async register-then-broadcast pattern.
	time.Sleep(50 * time.Millisecond)

	ev := wsmonitor.Event{Channel: "chan0", Type: "packet", Length: 12}
	hub.Broadcast(ev)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, body, err := conn.ReadMessage()
	require.NoError(t, err)

	var got wsmonitor.Event
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, "chan0", got.Channel)
	require.Equal(t, "packet", got.Type)
	require.Equal(t, 12, got.Length)
}

func TestHubBroadcastToNoClientsIsNoop(t *testing.T) {
	hub := wsmonitor.NewHub()
	require.NotPanics(t, func() {
		hub.Broadcast(wsmonitor.Event{Channel: "chan0", Type: "packet"})
	})
}
