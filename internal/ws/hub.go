package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks active conversation-stream connections per user. A user may hold
// several streams at once (one per device).
type Hub struct {
	streams map[string]map[*websocket.Conn]ConnInfo
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]map[*websocket.Conn]ConnInfo)}
}

// AddStream registers a websocket connection for a user.
func (h *Hub) AddStream(userID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.streams[userID]; !ok {
		h.streams[userID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.streams[userID][conn] = info
}

// RemoveStream removes a user's websocket connection.
func (h *Hub) RemoveStream(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.streams[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.streams, userID)
		}
	}
}

// StreamInfo returns the registered ConnInfo for a connection.
func (h *Hub) StreamInfo(userID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if conns, ok := h.streams[userID]; ok {
		info, exists := conns[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

// CountForUser reports how many streams a user currently holds.
func (h *Hub) CountForUser(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID])
}

// Count reports the total number of open streams.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.streams {
		total += len(conns)
	}
	return total
}

// CloseAll force-closes every registered connection. Used on shutdown; the
// per-connection read loops handle session teardown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.streams {
		for conn := range conns {
			if conn != nil {
				conn.Close()
			}
		}
	}
	h.streams = make(map[string]map[*websocket.Conn]ConnInfo)
}
