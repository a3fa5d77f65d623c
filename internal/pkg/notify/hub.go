// Package notify pushes run notices to operator pages over websockets.
package notify

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Notice is the frame written to every connected page.
type Notice struct {
	Type  string      `json:"type"`
	RunID string      `json:"run_id"`
	Data  interface{} `json:"data,omitempty"`
}

const NoticeRunCompleted = "run_completed"

const (
	// sendBuffer is how many notices a page may lag behind before it is dropped.
	sendBuffer = 16
	writeWait  = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan Notice
}

// Hub keeps the connected pages and broadcasts notices to them. It satisfies
// the kafka Producer interface so the service can publish to it directly.
// Broadcasting never waits on a page: each page has its own writer.
type Hub struct {
	upgrader websocket.Upgrader

	clients   map[*client]bool
	clientsMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
		clients: make(map[*client]bool),
	}
}

// sameOrigin accepts pages served by this server and clients that send no
// Origin at all (non-browser tools).
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// ServeWS upgrades the request and keeps the page registered until it goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Notice, sendBuffer)}

	h.clientsMu.Lock()
	h.clients[c] = true
	h.clientsMu.Unlock()

	go c.writeLoop()
	defer h.remove(c)

	// pages never send anything meaningful, reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	defer c.conn.Close()

	for notice := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(notice); err != nil {
			logrus.Warnf("Failed to write notice: %v", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// SendMessage broadcasts a run_completed notice keyed by run id.
func (h *Hub) SendMessage(ctx context.Context, key string, message interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.Broadcast(Notice{Type: NoticeRunCompleted, RunID: key, Data: message})
}

// Broadcast queues the notice for every page. Pages whose queue is full are
// disconnected.
func (h *Hub) Broadcast(notice Notice) error {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- notice:
		default:
			logrus.Warn("Dropping websocket client that stopped reading")
			h.drop(c)
			c.conn.Close()
		}
	}
	return nil
}

func (h *Hub) Clients() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// Close disconnects every page.
func (h *Hub) Close() error {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for c := range h.clients {
		h.drop(c)
	}
	return nil
}

func (h *Hub) remove(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if h.clients[c] {
		h.drop(c)
	}
}

// drop unregisters c and stops its writer. Callers hold clientsMu.
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}
