// Package wsmonitor pushes live demodulator/decoder events to connected
// monitor-UI clients over a websocket hub, following the upgrader and
// connection-registry conventions of websocket.go.
package wsmonitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    4096,
	WriteBufferSize:   65536,
	EnableCompression: false,
	CheckOrigin:       func(r *http.Request) bool { return true },
}

// Event is one JSON message broadcast to every connected monitor client.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Type      string    `json:"type"` // "label", "detect", "packet", "dropped"
	Label     string    `json:"label,omitempty"`
	State     string    `json:"state,omitempty"`
	Power     float64   `json:"power,omitempty"`
	SNR       float64   `json:"snr,omitempty"`
	Length    int       `json:"length,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans out Events to every registered client, matching the
// register/unregister/broadcast goroutine idiom of the teacher's session
// registry.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Broadcast sends ev to every currently connected client. A client whose
// send queue is full misses ev rather than blocking the broadcaster; it
// stays connected.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			log.Printf("wsmonitor: dropping event for slow client")
		}
	}
}

// ServeHTTP upgrades the connection and streams Events to it until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsmonitor: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Event, 64)}
	h.register(c)
	defer h.unregister(c)

	go h.readPump(c)
	h.writePump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
}

// readPump discards inbound traffic and unregisters the client once a
// read fails (peer closed or connection broken). No read deadline is set.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
