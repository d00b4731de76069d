package delivery

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/notify"
	"github.com/MikeMC777/backoffice-resto/internal/order"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

type memStore struct {
	mu   sync.Mutex
	recs map[string]*Record
}

func (m *memStore) Load(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) SaveCode(_ context.Context, id, hash string, gen, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.recs[id]
	if r.ConfirmedAt != nil {
		return ErrAlreadyConfirmed
	}
	r.Hash, r.GeneratedAt, r.ExpiresAt = hash, &gen, &exp
	return nil
}

func (m *memStore) MarkConfirmed(_ context.Context, id, by string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.recs[id]
	if r.ConfirmedAt != nil {
		return ErrAlreadyConfirmed
	}
	r.ConfirmedAt, r.ConfirmedBy = &at, &by
	return nil
}

type stubOrders struct {
	orders      map[string]*order.Order
	transitions []order.Status
}

func (s *stubOrders) Get(_ context.Context, id string) (*order.Order, []order.Item, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil, nil
}

func (s *stubOrders) Transition(_ context.Context, id string, to order.Status, _ string) (*order.Order, error) {
	s.orders[id].Status = to
	s.transitions = append(s.transitions, to)
	return s.orders[id], nil
}

type recHub struct {
	mu   sync.Mutex
	msgs []*View
}

func (h *recHub) Publish(_ string, _ string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, data.(*View))
}

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, notify.Message) {}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func setup(st order.Status) (*Service, *memStore, *stubOrders, *clock) {
	store := &memStore{recs: map[string]*Record{"o1": {State: State{OrderID: "o1"}}}}
	orders := &stubOrders{orders: map[string]*order.Order{
		"o1": {ID: "o1", Type: order.TypeDelivery, Status: st},
	}}
	clk := &clock{t: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)}
	svc := NewService(store, orders, nopNotifier{}, &recHub{}, config.DeliveryConfig{CodeTTL: 15 * time.Minute, CodeDigits: 6}).
		WithClock(clk.Now)
	svc.cost = bcrypt.MinCost
	return svc, store, orders, clk
}

func TestGenerateAndConfirm(t *testing.T) {
	svc, store, orders, clk := setup(order.StatusInTransit)
	defer svc.Close()
	ctx := context.Background()

	code, v, err := svc.Generate(ctx, "o1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(code) != 6 || v.Status != StatusActive || v.RemainingSeconds != 900 {
		t.Fatalf("code=%q view=%+v", code, v)
	}
	if store.recs["o1"].Hash == code {
		t.Fatal("plaintext code stored")
	}

	clk.Advance(10 * time.Minute)
	if _, err := svc.Confirm(ctx, "o1", "not-it", "driver-1"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("err=%v, want mismatch", err)
	}
	v, err = svc.Confirm(ctx, "o1", code, "driver-1")
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if v.Status != StatusConfirmed {
		t.Fatalf("status=%s", v.Status)
	}
	if len(orders.transitions) != 1 || orders.transitions[0] != order.StatusDelivered {
		t.Fatalf("transitions=%v", orders.transitions)
	}

	// confirmation sticks after the expiry window
	clk.Advance(6 * time.Minute)
	v, err = svc.Status(ctx, "o1")
	if err != nil || v.Status != StatusConfirmed {
		t.Fatalf("view=%+v err=%v", v, err)
	}
	if _, err := svc.Confirm(ctx, "o1", code, "driver-1"); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("err=%v", err)
	}
}

func TestConfirmExpiredCode(t *testing.T) {
	svc, _, orders, clk := setup(order.StatusInTransit)
	defer svc.Close()
	ctx := context.Background()

	code, _, err := svc.Generate(ctx, "o1")
	if err != nil {
		t.Fatal(err)
	}
	clk.Advance(16 * time.Minute)
	if v, _ := svc.Status(ctx, "o1"); v.Status != StatusExpired {
		t.Fatalf("status=%s", v.Status)
	}
	if _, err := svc.Confirm(ctx, "o1", code, "driver-1"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("err=%v", err)
	}
	if len(orders.transitions) != 0 {
		t.Fatal("expired code changed the order")
	}
}

func TestGenerateRejectsOrdersNotOutForDelivery(t *testing.T) {
	for _, st := range []order.Status{order.StatusPending, order.StatusAccepted, order.StatusDelivered, order.StatusCancelled} {
		svc, _, _, _ := setup(st)
		if _, _, err := svc.Generate(context.Background(), "o1"); !errors.Is(err, ErrNotDeliverable) {
			t.Fatalf("%s: err=%v", st, err)
		}
		svc.Close()
	}
}

func TestConfirmWithoutCode(t *testing.T) {
	svc, _, _, _ := setup(order.StatusInTransit)
	if _, err := svc.Confirm(context.Background(), "o1", "123456", "x"); !errors.Is(err, ErrNoCode) {
		t.Fatalf("err=%v", err)
	}
}
