package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/victornm/showdown/internal/domain"
)

// Hub keeps the connected clients, keyed by connection id. The connection id is also the
// player id of the connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool

	// running read pumps
	wg sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds the client. A closed hub refuses it. A registered client must be Run, the
// hub waits for its read pump on Close.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.clients[c.id] = c
	h.wg.Add(1)
	return true
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, id)
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Dispatch enqueues the broadcasts to every connection, or to the addressed one for private
// broadcasts. It never blocks: a client with a full buffer misses the message.
func (h *Hub) Dispatch(bs []domain.Broadcast) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, b := range bs {
		data, err := json.Marshal(NewServerMessage(MessageType(b.Kind), b.Data))
		if err != nil {
			slog.Error("ws: marshal broadcast failed", "kind", b.Kind, "error", err)
			continue
		}

		if b.Private() {
			if c, ok := h.clients[b.To]; ok {
				c.enqueue(data)
			}
			continue
		}

		for _, c := range h.clients {
			c.enqueue(data)
		}
	}
}

// Close disconnects every client and returns once their read pumps have left the session.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}

	h.wg.Wait()
}
