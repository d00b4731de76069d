// Package realtime pushes server-side changes to dashboard clients over
// WebSocket and turns Postgres NOTIFY payloads into change events.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/metrics"
)

const (
	TopicOrders  = "orders"
	TopicDrivers = "drivers"
	// TopicAll receives every published message.
	TopicAll = "*"
)

// Message types sent to clients.
const (
	TypeChange      = "change"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypePong        = "pong"
)

type Message struct {
	Type  string    `json:"type"`
	Topic string    `json:"topic,omitempty"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}

// Hub fans messages out to the clients subscribed to their topic.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

// Serve runs the hub until ctx is cancelled, then closes every client.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.closeAll()
			logging.Info().Str("component", "websocket-hub").Msg("hub stopped")
			return ctx.Err()
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))
			logging.Debug().Int("total_clients", n).Msg("websocket client connected")
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Publish queues a message for every client subscribed to topic. It never
// blocks; when the queue is full the message is dropped.
func (h *Hub) Publish(topic, typ string, data any) {
	m := Message{Type: typ, Topic: topic, Data: data, At: time.Now().UTC()}
	select {
	case h.broadcast <- m:
	default:
		logging.Warn().Str("topic", topic).Msg("hub queue full, message dropped")
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount is the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(m Message) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		if !c.Subscribed(m.Topic) {
			continue
		}
		select {
		case c.send <- m:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logging.Warn().Uint64("client_id", c.id).Msg("dropping slow websocket client")
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.WebSocketClients.Set(float64(n))
		c.closed()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	cs := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		cs = append(cs, c)
	}
	h.mu.Unlock()
	metrics.WebSocketClients.Set(0)
	for _, c := range cs {
		c.closed()
	}
}
