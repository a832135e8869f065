package socket

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Event is what subscribers receive whenever cached queries go stale.
type Event struct {
	Type string   `json:"type"`
	Keys []string `json:"keys"`
}

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	userID string
	role   string
	conn   Conn
	send   chan []byte
}

// Hub tracks websocket connections and fans invalidation events out to them.
type Hub struct {
	clients map[string]*client
	mu      sync.RWMutex
	log     logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log,
	}
}

// Register adds a connection under connID and starts its writer.
func (h *Hub) Register(connID, userID, role string, conn Conn) {
	c := &client{userID: userID, role: role, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()
	go h.writePump(connID, c)
	h.log.Debug("websocket client registered", logger.String("conn", connID), logger.String("user", userID))
}

func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.log.Debug("websocket client unregistered", logger.String("conn", connID))
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Invalidated implements cache.Listener.
func (h *Hub) Invalidated(keys []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		visible := visibleKeys(c, keys)
		if len(visible) == 0 {
			continue
		}
		msg, err := json.Marshal(Event{Type: "invalidate", Keys: visible})
		if err != nil {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.log.Warning("websocket client too slow, dropping event", logger.String("conn", id))
		}
	}
}

// visibleKeys hides admin lists from customers and other users' booking lists.
func visibleKeys(c *client, keys []string) []string {
	if c.role == db.RoleAdmin {
		return keys
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, "admin-"):
		case strings.HasPrefix(k, "my-bookings:") && k != cache.MyBookings(c.userID):
		case strings.HasPrefix(k, "profile:") && k != cache.Profile(c.userID):
		case strings.HasPrefix(k, "oauth-state:"):
		default:
			out = append(out, k)
		}
	}
	return out
}

func (h *Hub) writePump(connID string, c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warning("websocket write failed", logger.String("conn", connID), logger.Error(err))
			c.conn.Close()
			return
		}
	}
}
