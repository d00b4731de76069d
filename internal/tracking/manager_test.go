package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MikeMC777/backoffice-resto/internal/driver"
	"github.com/MikeMC777/backoffice-resto/internal/order"
	"github.com/MikeMC777/backoffice-resto/internal/realtime"
)

type stubOrders struct {
	o    *order.Order
	a    *order.Assignment
	aErr error
}

func (s *stubOrders) Get(context.Context, string) (*order.Order, []order.Item, error) {
	cp := *s.o
	return &cp, nil, nil
}

func (s *stubOrders) Assignment(context.Context, string) (*order.Assignment, error) {
	return s.a, s.aErr
}

type stubDrivers map[string]*driver.Driver

func (s stubDrivers) Get(_ context.Context, id string) (*driver.Driver, error) {
	d, ok := s[id]
	if !ok {
		return nil, driver.ErrNotFound
	}
	return d, nil
}

func f(v float64) *float64 { return &v }

func newTestManager() (*Manager, *fakeDirections) {
	dir := &fakeDirections{}
	orders := &stubOrders{
		o: &order.Order{ID: "o1", Type: order.TypeDelivery, Status: order.StatusReadyForDelivery, Lat: f(5.40), Lng: f(-3.90)},
		a: &order.Assignment{ID: "a1", OrderID: "o1", DriverID: "d1"},
	}
	drivers := stubDrivers{"d1": {ID: "d1", Lat: f(5.31), Lng: f(-4.01)}}
	return NewManager(testSettings(), dir, nil, orders, drivers), dir
}

func TestManager_OpenLoadsDeclaredPosition(t *testing.T) {
	m, _ := newTestManager()
	s, err := m.Open(context.Background(), "o1")
	if err != nil {
		t.Fatal(err)
	}
	defer m.CloseAll()

	if s.DriverID() != "d1" {
		t.Fatalf("driver=%s", s.DriverID())
	}
	if p, src := s.Position(); src != SourceDeclared || p != (Point{5.31, -4.01}) {
		t.Fatalf("p=%v src=%s", p, src)
	}
	if s.Phase() != PhaseToRestaurant {
		t.Fatalf("phase=%s", s.Phase())
	}
}

func TestManager_RefCounting(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	a, _ := m.Open(ctx, "o1")
	b, _ := m.Open(ctx, "o1")
	if a != b {
		t.Fatal("second open must share the session")
	}
	m.Release("o1")
	if a.Closed() {
		t.Fatal("session closed while still referenced")
	}
	m.Release("o1")
	if !a.Closed() {
		t.Fatal("last release must close the session")
	}
	if _, ok := m.Session("o1"); ok {
		t.Fatal("session still registered")
	}
}

func TestManager_RoutesChanges(t *testing.T) {
	m, _ := newTestManager()
	s, _ := m.Open(context.Background(), "o1")
	defer m.CloseAll()

	var d realtime.Dispatcher
	cancel := m.Subscribe(&d)
	defer cancel()

	d.Dispatch(realtime.Change{Table: "drivers", Op: "UPDATE", ID: "d1", Row: []byte(`{"id":"d1","lat":5.33,"lng":-4.05}`)})
	if p, src := s.Position(); src != SourceLive || p != (Point{5.33, -4.05}) {
		t.Fatalf("p=%v src=%s", p, src)
	}

	d.Dispatch(realtime.Change{Table: "drivers", Op: "UPDATE", ID: "d9", Row: []byte(`{"id":"d9","lat":1,"lng":1}`)})
	if p, _ := s.Position(); p.Lat != 5.33 {
		t.Fatal("another driver's position leaked into the session")
	}

	d.Dispatch(realtime.Change{Table: "orders", Op: "UPDATE", ID: "o1", Row: []byte(`{"id":"o1","status":"picked_up","lat":5.40,"lng":-3.90}`)})
	if s.Phase() != PhaseToCustomer || s.Target() != (Point{5.40, -3.90}) {
		t.Fatalf("phase=%s target=%v", s.Phase(), s.Target())
	}

	d.Dispatch(realtime.Change{Table: "order_driver_assignments", Op: "INSERT", ID: "a2", Row: []byte(`{"id":"a2","order_id":"o1","driver_id":"d2","delivered_at":null}`)})
	if s.DriverID() != "d2" {
		t.Fatalf("driver=%s", s.DriverID())
	}
	if _, src := s.Position(); src != SourceDefault {
		t.Fatalf("unknown driver should fall back to default, got %s", src)
	}
}

func TestManager_OpenFailureStopsSession(t *testing.T) {
	dir := &fakeDirections{}
	orders := &stubOrders{
		o:    &order.Order{ID: "o2", Type: order.TypeDelivery, Status: order.StatusInTransit, Lat: f(5.40), Lng: f(-3.90)},
		aErr: errors.New("connection reset"),
	}
	m := NewManager(testSettings(), dir, nil, orders, stubDrivers{})

	if _, err := m.Open(context.Background(), "o2"); err == nil {
		t.Fatal("expected the assignment error")
	}
	if _, ok := m.Session("o2"); ok {
		t.Fatal("failed open must not register a session")
	}

	time.Sleep(5 * testSettings().Debounce)
	dir.mu.Lock()
	defer dir.mu.Unlock()
	if len(dir.calls) != 0 {
		t.Fatalf("abandoned session refreshed %d times", len(dir.calls))
	}
}
