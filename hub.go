package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message types
const (
	msgExpand        = "tree.expand"
	msgCollapse      = "tree.collapse"
	msgActivate      = "row.activate"
	msgTreeChanged   = "tree.changed"
	msgPreviewLoaded = "preview.loaded"
	msgError         = "error"
)

// wsMessage is one frame on the /ws connection, in either direction.
type wsMessage struct {
	Type      string          `json:"type"`
	ID        nodeID          `json:"id,omitempty"`
	IDs       []nodeID        `json:"ids,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// wsClient is one browser window
type wsClient struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

// hub tracks connected windows and fans tree and preview changes out to all
// of them.
type hub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	mu         sync.RWMutex

	// handle is called for every frame a client sends
	handle func(c *wsClient, msg wsMessage)
	log    *logrus.Logger
}

func newHub(logger *logrus.Logger) *hub {
	return &hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// run starts the hub's message processing loop
func (h *hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.WithField("clients", n).Debug("Window connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.WithField("clients", n).Debug("Window disconnected")

		case data := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// slow window; drop it rather than stall everyone
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// publish queues msg for every connected window without blocking the caller
func (h *hub) publish(msg wsMessage) {
	msg.Timestamp = time.Now()
	select {
	case h.broadcast <- mustMarshal(h.log, msg):
	default:
		h.log.WithField("type", msg.Type).Warn("Broadcast queue full, dropping message")
	}
}

// join registers c, reporting false once the hub has stopped
func (h *hub) join(c *wsClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// reply sends msg to c alone
func (c *wsClient) reply(msg wsMessage) {
	msg.Timestamp = time.Now()
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- mustMarshal(c.hub.log, msg):
	default:
	}
}

// readPump pumps frames from the connection to the hub's handler
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.log.WithError(err).Warn("WebSocket error")
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.log.WithError(err).Debug("Invalid message format")
			c.reply(wsMessage{Type: msgError, Error: "invalid message format"})
			continue
		}
		if c.hub.handle != nil {
			c.hub.handle(c, msg)
		}
	}
}

// writePump pumps queued frames from the hub to the connection
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

func mustMarshal(logger *logrus.Logger, v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal message")
		return []byte("{}")
	}
	return b
}
