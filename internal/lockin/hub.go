package lockin

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event signals that the shared session slot changed. Receivers re-run
// Initialize and converge on the slot's current content; the event carries
// no authoritative state of its own.
type Event struct {
	Type       string `json:"type"` // always "lockin_changed"
	Transition string `json:"transition"`
	ExamID     string `json:"exam_id,omitempty"`
}

// Hub fans session change events out to connected tabs (WebSocket) and to
// in-process listeners. Delivery is eventual, not transactional: two tabs
// racing to start sessions may both believe they succeeded until the event
// for the last write arrives; last write wins.
type Hub struct {
	mu        sync.Mutex
	conns     map[*websocket.Conn]bool
	listeners []func(Event)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: map[*websocket.Conn]bool{}}
}

// Listen registers an in-process listener for session change events.
func (h *Hub) Listen(fn func(Event)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Broadcast delivers the event to all listeners and connected tabs. A failed
// socket write drops that connection.
func (h *Hub) Broadcast(ev Event) {
	ev.Type = "lockin_changed"

	h.mu.Lock()
	listeners := make([]func(Event), len(h.listeners))
	copy(listeners, h.listeners)
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
	for _, c := range conns {
		if err := c.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Msg("lock-in event write failed, dropping connection")
			h.drop(c)
		}
	}
}

// HandleWebSocket upgrades the request and keeps the connection registered
// until the peer disconnects. The socket is broadcast-only; inbound messages
// are drained and discarded.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("lock-in websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()

	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("lock-in websocket read failed")
			}
			return
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	if h.conns[c] {
		delete(h.conns, c)
		c.Close()
	}
	h.mu.Unlock()
}
