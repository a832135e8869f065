package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"carrental/internal/logger"
	"carrental/internal/socket"
)

// Time allowed between client pings before the connection is dropped.
const pongWait = 60 * time.Second

type WebSocketHandler struct {
	hub      *socket.Hub
	upgrader websocket.Upgrader
	log      logger.ILogger
}

func NewWebSocketHandler(hub *socket.Hub, allowedOrigins []string, log logger.ILogger) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &WebSocketHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// ServeWs upgrades an authenticated request and keeps it registered until the
// client goes away. Clients only ever receive; anything they send is a keepalive.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	c := claims(r)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warning("websocket upgrade failed", logger.Error(err))
		return
	}

	connID := uuid.NewString()
	h.hub.Register(connID, c.UserID, c.Role, conn)
	defer func() {
		h.hub.Unregister(connID)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warning("websocket closed unexpectedly", logger.String("user", c.UserID), logger.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
