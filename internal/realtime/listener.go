package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/metrics"
)

// Change is one row event emitted by the backoffice_notify_change trigger.
type Change struct {
	Table string          `json:"table"`
	Op    string          `json:"op"`
	ID    string          `json:"id"`
	Row   json.RawMessage `json:"row"`
}

// Decode unmarshals the row snapshot into v.
func (c Change) Decode(v any) error { return json.Unmarshal(c.Row, v) }

type Handler func(Change)

type subscription struct {
	id    uint64
	table string
	rowID string
	fn    Handler
}

// Dispatcher routes change events to handlers keyed by table and optionally
// by row id.
type Dispatcher struct {
	mu   sync.RWMutex
	next uint64
	subs []subscription
}

// Subscribe registers fn for changes on table. An empty rowID matches every
// row. The returned func removes the subscription.
func (d *Dispatcher) Subscribe(table, rowID string, fn Handler) func() {
	d.mu.Lock()
	d.next++
	id := d.next
	d.subs = append(d.subs, subscription{id: id, table: table, rowID: rowID, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch calls every matching handler synchronously.
func (d *Dispatcher) Dispatch(c Change) {
	d.mu.RLock()
	var fns []Handler
	for _, s := range d.subs {
		if s.table == c.Table && (s.rowID == "" || s.rowID == c.ID) {
			fns = append(fns, s.fn)
		}
	}
	d.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// ParseChange decodes a NOTIFY payload.
func ParseChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return c, fmt.Errorf("decode change: %w", err)
	}
	if c.Table == "" {
		return c, fmt.Errorf("decode change: missing table")
	}
	return c, nil
}

// Listener holds one pooled connection in LISTEN mode and feeds a Dispatcher.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	*Dispatcher
}

func NewListener(pool *pgxpool.Pool, channel string) *Listener {
	return &Listener{pool: pool, channel: channel, Dispatcher: &Dispatcher{}}
}

// Serve listens until ctx ends. Connection errors are returned so the
// supervisor can restart the listener; malformed payloads are only logged.
func (l *Listener) Serve(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	logging.Info().Str("channel", l.channel).Msg("listening for changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Error().Err(err).Str("channel", l.channel).Msg("change feed interrupted")
			return err
		}
		c, err := ParseChange(n.Payload)
		if err != nil {
			logging.Warn().Err(err).Msg("ignoring change notification")
			continue
		}
		metrics.ChangeEvents.WithLabelValues(c.Table, c.Op).Inc()
		l.Dispatch(c)
	}
}

// Forward publishes every change of table to the hub topic.
func Forward(d *Dispatcher, hub *Hub, table, topic string) func() {
	return d.Subscribe(table, "", func(c Change) {
		hub.Publish(topic, TypeChange, c)
	})
}
