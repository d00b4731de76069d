package tracking

import (
	"context"
	"sync"

	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/driver"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/metrics"
	"github.com/MikeMC777/backoffice-resto/internal/order"
	"github.com/MikeMC777/backoffice-resto/internal/realtime"
)

type Orders interface {
	Get(ctx context.Context, id string) (*order.Order, []order.Item, error)
	Assignment(ctx context.Context, id string) (*order.Assignment, error)
}

type Drivers interface {
	Get(ctx context.Context, id string) (*driver.Driver, error)
}

// SettingsFrom builds session settings from configuration.
func SettingsFrom(cfg config.TrackingConfig) Settings {
	return Settings{
		Restaurant: Point{Lat: cfg.RestaurantLat, Lng: cfg.RestaurantLng},
		Default:    Point{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng},
		Debounce:   cfg.Debounce,
	}
}

type entry struct {
	s    *Session
	refs int
}

// Manager owns the open sessions and feeds them change events. Sessions are
// reference counted: each viewer opens and releases its own handle.
type Manager struct {
	set     Settings
	dir     Directions
	pub     Publisher
	orders  Orders
	drivers Drivers

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewManager(set Settings, dir Directions, pub Publisher, orders Orders, drivers Drivers) *Manager {
	return &Manager{
		set:      set,
		dir:      dir,
		pub:      pub,
		orders:   orders,
		drivers:  drivers,
		sessions: map[string]*entry{},
	}
}

// Open returns the session of orderID, creating it from the stored order,
// assignment and driver rows on first use.
func (m *Manager) Open(ctx context.Context, orderID string) (*Session, error) {
	m.mu.Lock()
	if e, ok := m.sessions[orderID]; ok {
		e.refs++
		m.mu.Unlock()
		return e.s, nil
	}
	m.mu.Unlock()

	o, _, err := m.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s := NewSession(orderID, m.set, m.dir, m.pub)
	s.SetCustomer(o.Lat, o.Lng)
	s.SetPhase(PhaseOf(o.Status))

	a, err := m.orders.Assignment(ctx, orderID)
	if err != nil {
		s.Close()
		return nil, err
	}
	if a != nil {
		m.attachDriver(ctx, s, a.DriverID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[orderID]; ok {
		// lost a race with another opener
		s.Close()
		e.refs++
		return e.s, nil
	}
	m.sessions[orderID] = &entry{s: s, refs: 1}
	metrics.TrackingSessions.Set(float64(len(m.sessions)))
	return s, nil
}

func (m *Manager) attachDriver(ctx context.Context, s *Session, driverID string) {
	var declared *Point
	d, err := m.drivers.Get(ctx, driverID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("driver_id", driverID).Msg("load tracked driver")
	} else if p, ok := Resolve(d.Lat, d.Lng, Point{}); ok {
		declared = &p
	}
	s.SetDriver(driverID, declared)
}

// Release drops one reference; the last one closes the session.
func (m *Manager) Release(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[orderID]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		e.s.Close()
		delete(m.sessions, orderID)
		metrics.TrackingSessions.Set(float64(len(m.sessions)))
	}
}

func (m *Manager) Session(orderID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[orderID]
	if !ok {
		return nil, false
	}
	return e.s, true
}

// CloseAll tears every session down.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		e.s.Close()
		delete(m.sessions, id)
	}
	metrics.TrackingSessions.Set(0)
}

func (m *Manager) snapshot() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, e.s)
	}
	return out
}

type driverRow struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type orderRow struct {
	Status order.Status `json:"status"`
	Lat    *float64     `json:"lat"`
	Lng    *float64     `json:"lng"`
}

type assignmentRow struct {
	OrderID     string  `json:"order_id"`
	DriverID    string  `json:"driver_id"`
	DeliveredAt *string `json:"delivered_at"`
}

// HandleChange routes a change-feed event to the sessions it concerns.
func (m *Manager) HandleChange(c realtime.Change) {
	switch c.Table {
	case "drivers":
		var row driverRow
		if err := c.Decode(&row); err != nil || row.Lat == nil || row.Lng == nil {
			return
		}
		p := Point{Lat: *row.Lat, Lng: *row.Lng}
		for _, s := range m.snapshot() {
			if s.DriverID() == c.ID {
				s.UpdatePosition(p)
			}
		}

	case "orders":
		s, ok := m.Session(c.ID)
		if !ok {
			return
		}
		var row orderRow
		if err := c.Decode(&row); err != nil {
			logging.Warn().Err(err).Str("order_id", c.ID).Msg("decode order change")
			return
		}
		s.SetCustomer(row.Lat, row.Lng)
		s.SetPhase(PhaseOf(row.Status))

	case "order_driver_assignments":
		var row assignmentRow
		if err := c.Decode(&row); err != nil || row.DeliveredAt != nil {
			return
		}
		s, ok := m.Session(row.OrderID)
		if !ok || s.DriverID() == row.DriverID {
			return
		}
		m.attachDriver(context.Background(), s, row.DriverID)
	}
}

// Subscribe wires the manager to a change dispatcher.
func (m *Manager) Subscribe(d *realtime.Dispatcher) (cancel func()) {
	cancels := []func(){
		d.Subscribe("drivers", "", m.HandleChange),
		d.Subscribe("orders", "", m.HandleChange),
		d.Subscribe("order_driver_assignments", "", m.HandleChange),
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
