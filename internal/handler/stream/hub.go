package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	models "MacroPulse/internal/domain/models"
	"MacroPulse/internal/usecase"
	xlogger "MacroPulse/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
)

// Hub pushes every published snapshot to connected websocket clients.
type Hub struct {
	logger   *xlogger.Logger
	snap     *usecase.SnapshotHolder
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub subscribes the hub to snap. allowedOrigins empty accepts any origin.
func NewHub(logger *xlogger.Logger, snap *usecase.SnapshotHolder, allowedOrigins []string) *Hub {
	h := &Hub{
		logger:  logger,
		snap:    snap,
		clients: make(map[string]*client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	snap.Subscribe(h.Broadcast)
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/snapshot", h.Serve)
}

// Serve upgrades the connection and sends the current snapshot right away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}
	cl := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[cl.id] = cl
	// queued under the lock so no broadcast can slip in ahead of it
	if msg, err := encode(h.snap.Load()); err == nil {
		cl.send <- msg
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client connected",
		xlogger.String("client_id", cl.id),
		xlogger.String("remote", c.RealIP()),
		xlogger.Int("clients", n),
	)

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// Broadcast queues s for every client. A client whose buffer is full is
// disconnected instead of stalling the collector.
func (h *Hub) Broadcast(s *models.Snapshot) {
	msg, err := encode(s)
	if err != nil {
		h.logger.Error("snapshot encode failed", xlogger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			h.logger.Warn("ws client too slow, dropping", xlogger.String("client_id", id))
			delete(h.clients, id)
			cl.close()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, cl := range h.clients {
		delete(h.clients, id)
		cl.close()
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl.id]; ok {
		delete(h.clients, cl.id)
		cl.close()
	}
	h.mu.Unlock()
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for disconnects; clients do not send anything.
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		h.logger.Info("ws client disconnected", xlogger.String("client_id", cl.id))
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func encode(s *models.Snapshot) ([]byte, error) {
	return json.Marshal(map[string]any{"type": "snapshot", "data": s})
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
