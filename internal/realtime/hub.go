package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pollfeed/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 32
	broadcastQueue = 256
)

// Hub fans deltas out to all connected websocket clients. Delivery is
// best-effort: nothing is persisted, a client that cannot keep up is
// dropped, and a disconnected client re-fetches authoritative state on
// reconnect.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Delta
	log        *slog.Logger

	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan Delta
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Delta, broadcastQueue),
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth happens at the API layer; the delta stream itself is public.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run owns the client set. It must be running before Handle accepts
// connections; it drains until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*client]struct{})

	closeClient := func(c *client) {
		if _, ok := clients[c]; !ok {
			return
		}
		delete(clients, c)
		close(c.send)
		metrics.AddWSClients(-1)
	}

	h.log.Info("realtime hub started")
	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				closeClient(c)
			}
			h.log.Info("realtime hub stopped")
			return
		case c := <-h.register:
			clients[c] = struct{}{}
			metrics.AddWSClients(1)
		case c := <-h.unregister:
			closeClient(c)
		case d := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- d:
				default:
					// Stalled connection: drop it rather than block the fan-out.
					h.log.Warn("dropping slow realtime client")
					closeClient(c)
				}
			}
		}
	}
}

// Broadcast enqueues a delta for every connected client. It never blocks the
// calling mutation; if the hub queue is full the delta is dropped.
func (h *Hub) Broadcast(d Delta) {
	select {
	case h.broadcast <- d:
	default:
		h.log.Warn("realtime queue full, dropping delta", "type", d.Type, "poll_id", d.PollID)
	}
}

// Handle upgrades the request to a websocket connection and attaches it to
// the hub.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan Delta, clientBuffer)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case d, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(d); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the stream is one-way. It exists to
// process control frames and to notice the peer going away.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
