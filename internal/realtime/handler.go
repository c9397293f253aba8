package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingPeriod = 30 * time.Second

	// subscribe and unsubscribe frames are a few topics long
	maxMessageSize = 4096
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler upgrades connections for hub. An empty allowedOrigins accepts
// any origin.
func NewHandler(hub *Hub, log *zap.Logger, allowedOrigins []string) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &Handler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Serve upgrades the request for an already authenticated user and blocks
// until the connection's read side ends.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxMessageSize)

	client := NewClient(uuid.NewString(), userID)
	h.hub.Register(client)

	h.log.Debug("websocket connected",
		zap.String("client_id", client.ID),
		zap.String("user_id", userID),
	)

	go writePump(client, ws)
	readPump(h.hub, client, ws)
}

func readPump(hub *Hub, client *Client, conn Conn) {
	defer func() {
		hub.Unregister(client)
		_ = conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		hub.ProcessMessage(client, msg)
	}
}

func writePump(client *Client, conn Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
