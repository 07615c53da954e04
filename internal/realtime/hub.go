package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/middleware/cors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// ConnectionObserver is notified when connections open (+1) or close (-1).
type ConnectionObserver interface {
	WebsocketConnected(delta int)
}

// Hub tracks websocket connections by room and fans notifications out to
// the connections of one room on this instance.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	observer ConnectionObserver
	logger   *zap.Logger
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	rooms []string
	once  sync.Once
}

// NewHub builds a hub. An empty allowedOrigins list accepts any origin.
func NewHub(allowedOrigins []string, observer ConnectionObserver, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[*client]struct{}),
		upgrader: buildUpgrader(allowedOrigins),
		observer: observer,
		logger:   logger,
	}
}

func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	origins := cors.NewOrigins(allowedOrigins)
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return origins.OriginAllowed(r.Header.Get("Origin"))
		},
	}
}

// Serve upgrades the request and blocks until the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, identity *models.Identity) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize), rooms: RoomsFor(identity)}
	h.register(c)
	h.logger.Debug("websocket connected", zap.String("user_id", identity.ID()), zap.Strings("rooms", c.rooms))

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Deliver sends n to every local connection in n.Room and returns how many
// connections it was queued for.
func (h *Hub) Deliver(n models.Notification) int {
	payload, err := json.Marshal(n)
	if err != nil {
		h.logger.Warn("failed to encode notification", zap.Error(err))
		return 0
	}

	delivered := 0
	var slow []*client
	h.mu.RLock()
	for c := range h.rooms[n.Room] {
		select {
		case c.send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", zap.String("room", n.Room))
		h.unregister(c)
	}
	return delivered
}

// RoomSize returns the number of local connections in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make(map[*client]struct{})
	for _, members := range h.rooms {
		for c := range members {
			all[c] = struct{}{}
		}
	}
	h.mu.RUnlock()
	for c := range all {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	for _, room := range c.rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
	}
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.WebsocketConnected(1)
	}
}

func (h *Hub) unregister(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		for _, room := range c.rooms {
			if members, ok := h.rooms[room]; ok {
				delete(members, c)
				if len(members) == 0 {
					delete(h.rooms, room)
				}
			}
		}
		close(c.send)
		h.mu.Unlock()
		if h.observer != nil {
			h.observer.WebsocketConnected(-1)
		}
	})
}

// readPump only services control frames; clients do not send application messages.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
