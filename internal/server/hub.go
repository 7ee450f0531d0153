package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/render"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Hub fans engine changes and cues out to connected clients. It implements
// engine.Listener and engine.Notifier, and never blocks the engine: a
// client whose buffer is full is dropped.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *slog.Logger
	count      atomic.Int32

	seqMu   sync.Mutex
	lastSeq int64
}

// NewHub creates a Hub. Call Run to start delivering.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run delivers messages until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Debug("websocket hub started")
	defer func() {
		close(h.done)
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.count.Store(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int32(len(h.clients)))
			h.logger.Info("websocket client connected", "remote", c.remote, "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int32(len(h.clients)))
				h.logger.Info("websocket client disconnected", "remote", c.remote, "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("websocket client too slow, dropping", "remote", c.remote)
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.count.Store(int32(len(h.clients)))
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// add registers c, or closes it if the hub has stopped.
func (h *Hub) add(c *client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// TimersChanged implements engine.Listener. Changes older than the last one
// sent are discarded.
func (h *Hub) TimersChanged(c engine.Change) {
	h.seqMu.Lock()
	if c.Seq <= h.lastSeq {
		h.seqMu.Unlock()
		return
	}
	h.lastSeq = c.Seq
	h.seqMu.Unlock()

	h.publish(Message{Type: TypeSnapshot, Seq: c.Seq, Payload: render.Rows(c.Timers)})
}

// PlayCue implements engine.Notifier.
func (h *Hub) PlayCue(c engine.Cue) {
	h.publish(Message{Type: TypeCue, Seq: c.Seq, Payload: c})
}

func (h *Hub) publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding websocket message failed", "type", msg.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message", "type", msg.Type)
	}
}

// client is one WebSocket connection.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// readPump discards client messages and keeps the read deadline fresh.
// Unregisters the client when the connection fails.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", "remote", c.remote, "error", err)
			}
			return
		}
	}
}

// writePump sends queued messages and pings. It owns all writes to conn.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.logger.Debug("websocket write failed", "remote", c.remote, "error", err)
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
