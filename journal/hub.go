package journal

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub broadcasts committed journal events to websocket clients, for
// dashboards that consume the log live. It is a Sink; a slow or dead
// client is dropped, never blocks the simulation.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub creates a broadcast hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("journal client connected", zap.Int("total", n))

	go h.writeLoop(conn, ch)
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch chan []byte) {
	defer h.drop(conn)
	for msg := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

// Append implements Sink: fan the event out to every connected client.
func (h *Hub) Append(e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	var stale []*websocket.Conn
	for conn, ch := range h.clients {
		select {
		case ch <- raw:
		default:
			stale = append(stale, conn)
		}
	}
	h.mu.Unlock()
	for _, conn := range stale {
		h.drop(conn)
	}
	return nil
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		h.drop(conn)
	}
}
