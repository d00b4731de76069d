package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var clientIDs atomic.Uint64

// Client is one dashboard connection and its topic subscriptions.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message
	// pong is never closed, so readPump can always signal on it.
	pong chan struct{}

	mu      sync.RWMutex
	topics  map[string]struct{}
	onClose []func()
	once    sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, topics ...string) *Client {
	c := &Client{
		id:     clientIDs.Add(1),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, 64),
		pong:   make(chan struct{}, 1),
		topics: map[string]struct{}{},
	}
	for _, t := range topics {
		c.topics[t] = struct{}{}
	}
	return c
}

func (c *Client) ID() uint64 { return c.id }

func (c *Client) Subscribe(topic string) {
	c.mu.Lock()
	c.topics[topic] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	delete(c.topics, topic)
	c.mu.Unlock()
}

func (c *Client) Subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.topics[TopicAll]; ok {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

// OnClose registers fn to run once the client leaves the hub.
func (c *Client) OnClose(fn func()) {
	c.mu.Lock()
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

func (c *Client) closed() {
	c.once.Do(func() {
		c.mu.RLock()
		fns := c.onClose
		c.mu.RUnlock()
		for _, fn := range fns {
			fn()
		}
	})
}

// Start registers the client and runs its read and write pumps. It returns
// false when the hub is already stopped.
func (c *Client) Start() bool {
	if !c.hub.join(c) {
		_ = c.conn.Close()
		c.closed()
		return false
	}
	go c.writePump()
	go c.readPump()
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		c.handle(m)
	}
}

// handle applies one client frame. It must not touch c.send, which the hub
// closes on its own goroutine.
func (c *Client) handle(m Message) {
	switch m.Type {
	case TypeSubscribe:
		c.Subscribe(m.Topic)
	case TypeUnsubscribe:
		c.Unsubscribe(m.Topic)
	case TypePing:
		select {
		case c.pong <- struct{}{}:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case m, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			b, err := json.Marshal(m)
			if err != nil {
				logging.Error().Err(err).Str("type", m.Type).Msg("encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-c.pong:
			b, err := json.Marshal(Message{Type: TypePong, At: time.Now().UTC()})
			if err != nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
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
