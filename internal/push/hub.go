package push

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks connected websocket clients per username and delivers push
// payloads to every connection a user has open
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*websocket.Conn
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*websocket.Conn)}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens in the JWT middleware before the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and registers the connection for username.
// The read loop only exists to detect the close.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, username string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Hub: websocket upgrade failed for %s: %v", username, err)
		return
	}

	h.register(username, conn)
	log.Printf("Hub: user %s connected", username)

	go func() {
		defer func() {
			h.unregister(username, conn)
			conn.Close()
			log.Printf("Hub: user %s disconnected", username)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(username string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[username] = append(h.conns[username], conn)
}

func (h *Hub) unregister(username string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.conns[username]
	for i, c := range conns {
		if c == conn {
			h.conns[username] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[username]) == 0 {
		delete(h.conns, username)
	}
}

// Notify sends the payload to all of the user's open connections.
// Broken connections are dropped silently; delivery is best effort.
func (h *Hub) Notify(username string, payload map[string]interface{}) {
	h.mu.RLock()
	conns := append([]*websocket.Conn(nil), h.conns[username]...)
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			h.unregister(username, conn)
			conn.Close()
		}
	}
}

// ConnectedUsers returns how many distinct users are connected
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
