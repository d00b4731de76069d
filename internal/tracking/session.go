package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/MikeMC777/backoffice-resto/internal/debounce"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/order"
)

// MessageType tags session updates on the realtime hub.
const MessageType = "tracking"

func Topic(orderID string) string { return "tracking:" + orderID }

type Publisher interface {
	Publish(topic, typ string, data any)
}

type Phase string

const (
	PhaseToRestaurant Phase = "to_restaurant"
	PhaseToCustomer   Phase = "to_customer"
	PhaseDone         Phase = "done"
)

// PhaseOf maps an order status to the leg the driver is on.
func PhaseOf(s order.Status) Phase {
	switch s {
	case order.StatusPickedUp, order.StatusInTransit:
		return PhaseToCustomer
	case order.StatusDelivered, order.StatusCancelled:
		return PhaseDone
	default:
		return PhaseToRestaurant
	}
}

// PositionSource says where Session.Position came from.
type PositionSource string

const (
	SourceLive     PositionSource = "live"
	SourceDeclared PositionSource = "declared"
	SourceDefault  PositionSource = "default"
)

type Settings struct {
	Restaurant Point
	Default    Point
	Debounce   time.Duration
}

// View is the payload published to tracking subscribers.
type View struct {
	OrderID        string         `json:"order_id"`
	DriverID       string         `json:"driver_id,omitempty"`
	Phase          Phase          `json:"phase"`
	Position       Point          `json:"position"`
	PositionSource PositionSource `json:"position_source"`
	Target         Point          `json:"target"`
	DistanceKm     float64        `json:"distance_km"`
	ETASeconds     int            `json:"eta_seconds"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Route          *Route         `json:"route,omitempty"`
	Overlay        OverlayState   `json:"overlay"`
}

// Session tracks one order. Position changes are debounced into a single
// route request; the route result rebuilds the overlay.
type Session struct {
	orderID string
	set     Settings
	dir     Directions
	pub     Publisher
	slot    *debounce.Slot
	now     func() time.Time

	mu         sync.Mutex
	driverID   string
	declared   *Point
	live       *Point
	customer   Point
	phase      Phase
	route      *Route
	overlay    *Overlay
	firstRoute time.Time
	closed     bool
}

func NewSession(orderID string, set Settings, dir Directions, pub Publisher) *Session {
	return &Session{
		orderID:  orderID,
		set:      set,
		dir:      dir,
		pub:      pub,
		slot:     debounce.New(set.Debounce),
		now:      time.Now,
		customer: set.Default,
		phase:    PhaseToRestaurant,
		overlay:  NewOverlay(),
	}
}

func (s *Session) OrderID() string { return s.orderID }

func (s *Session) DriverID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driverID
}

// SetDriver attaches a driver and its last stored position.
func (s *Session) SetDriver(id string, declared *Point) {
	s.mu.Lock()
	if s.driverID != id {
		s.live = nil
	}
	s.driverID = id
	s.declared = declared
	s.mu.Unlock()
	s.schedule()
}

// SetCustomer sets the delivery coordinate; nil keeps the default.
func (s *Session) SetCustomer(lat, lng *float64) {
	p, ok := Resolve(lat, lng, s.set.Default)
	if !ok {
		logging.Debug().Str("order_id", s.orderID).Msg("customer coordinate missing, using default")
	}
	s.mu.Lock()
	s.customer = p
	s.mu.Unlock()
}

// SetPhase switches the target when the order crosses pickup.
func (s *Session) SetPhase(p Phase) {
	s.mu.Lock()
	changed := s.phase != p
	s.phase = p
	s.mu.Unlock()
	if changed && p != PhaseDone {
		s.schedule()
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// UpdatePosition records a live position and schedules a route refresh.
func (s *Session) UpdatePosition(p Point) {
	s.mu.Lock()
	s.live = &p
	s.mu.Unlock()
	s.schedule()
}

// Position is the live position when one has arrived, else the declared one,
// else the default coordinate.
func (s *Session) Position() (Point, PositionSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

func (s *Session) positionLocked() (Point, PositionSource) {
	switch {
	case s.live != nil:
		return *s.live, SourceLive
	case s.declared != nil:
		return *s.declared, SourceDeclared
	default:
		return s.set.Default, SourceDefault
	}
}

// Target is the restaurant before pickup and the customer after.
func (s *Session) Target() Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetLocked()
}

func (s *Session) targetLocked() Point {
	if s.phase == PhaseToCustomer {
		return s.customer
	}
	return s.set.Restaurant
}

// Elapsed counts from the first computed route. Display only.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstRoute.IsZero() {
		return 0
	}
	return s.now().Sub(s.firstRoute)
}

func (s *Session) schedule() {
	s.slot.Schedule(s.Refresh)
}

// Refresh fetches a route for the current position and target and rebuilds
// the overlay. Lookup failures are logged and leave the overlay as it was.
func (s *Session) Refresh() {
	s.mu.Lock()
	if s.closed || s.phase == PhaseDone {
		s.mu.Unlock()
		return
	}
	from, _ := s.positionLocked()
	to := s.targetLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := s.dir.Route(ctx, from, to)
	if err != nil {
		logging.Warn().Err(err).Str("order_id", s.orderID).Msg("route lookup failed")
		return
	}

	s.mu.Lock()
	if s.closed {
		// session went away while the request was in flight
		s.mu.Unlock()
		return
	}
	s.route = r
	s.rebuildOverlayLocked(from, to, r)
	if s.firstRoute.IsZero() {
		s.firstRoute = s.now()
	}
	v := s.viewLocked()
	s.mu.Unlock()

	s.publish(v)
}

func (s *Session) rebuildOverlayLocked(from, to Point, r *Route) {
	s.overlay.Clear()
	_ = s.overlay.AddSource(Source{ID: "route", Coordinates: r.Coordinates})
	_ = s.overlay.AddSource(Source{ID: "driver", Coordinates: [][2]float64{{from.Lng, from.Lat}}})
	_ = s.overlay.AddSource(Source{ID: "target", Coordinates: [][2]float64{{to.Lng, to.Lat}}})
	_ = s.overlay.AddLayer(Layer{ID: "route-line", Source: "route", Kind: "line"})
	_ = s.overlay.AddLayer(Layer{ID: "driver-marker", Source: "driver", Kind: "marker"})
	_ = s.overlay.AddLayer(Layer{ID: "target-marker", Source: "target", Kind: "marker"})
}

// View returns the current snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	pos, src := s.positionLocked()
	to := s.targetLocked()
	km := Haversine(pos, to)
	eta := EstimateETA(km, CitySpeedKmh)
	if s.route != nil {
		eta = s.route.Duration
	}
	v := View{
		OrderID:        s.orderID,
		DriverID:       s.driverID,
		Phase:          s.phase,
		Position:       pos,
		PositionSource: src,
		Target:         to,
		DistanceKm:     km,
		ETASeconds:     int(eta.Seconds()),
		Route:          s.route,
		Overlay:        s.overlay.State(),
	}
	if !s.firstRoute.IsZero() {
		v.ElapsedSeconds = int(s.now().Sub(s.firstRoute).Seconds())
	}
	return v
}

func (s *Session) publish(v View) {
	if s.pub != nil {
		s.pub.Publish(Topic(s.orderID), MessageType, v)
	}
}

// Close cancels the pending refresh and drops any in-flight result.
func (s *Session) Close() {
	s.slot.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
