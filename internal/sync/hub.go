// Package sync fans library change events out to connected clients over a
// plain TCP line-JSON feed and over websocket.
package sync

import (
	"net"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// writeDeadline bounds every client write. A client that cannot drain one
// event inside it is dropped rather than waited on.
const writeDeadline = 2 * time.Second

// Hub tracks feed subscribers on both transports. Delivery is best effort:
// events are never buffered for a disconnected or stalled client.
type Hub struct {
	mu  sync.Mutex
	tcp map[net.Conn]struct{}
	ws  map[*websocket.Conn]struct{}
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		tcp: make(map[net.Conn]struct{}),
		ws:  make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.tcp[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcp, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.ws[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.ws, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish broadcasts one library event to every connected client.
func (h *Hub) Publish(ev LibraryEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.broadcast(b)
}

// Welcome greets a newly connected TCP client with the current client count.
func (h *Hub) Welcome(conn net.Conn) {
	h.mu.Lock()
	n := len(h.tcp)
	h.mu.Unlock()

	b, err := json.Marshal(map[string]any{"type": "welcome", "clients": n})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	_, _ = conn.Write(append(b, '\n'))
}

func (h *Hub) broadcast(b []byte) {
	line := append(append(make([]byte, 0, len(b)+1), b...), '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.tcp {
		_ = c.SetWriteDeadline(time.Now().Add(writeDeadline))
		if _, err := c.Write(line); err != nil {
			_ = c.Close()
			delete(h.tcp, c)
		}
	}
	for ws := range h.ws {
		_ = ws.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.ws, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.tcp),
		WSClients:  len(h.ws),
	}
}
