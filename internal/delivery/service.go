package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/notify"
	"github.com/MikeMC777/backoffice-resto/internal/order"
)

// MessageType tags countdown updates on the realtime hub.
const MessageType = "delivery_code"

func Topic(orderID string) string { return "delivery:" + orderID }

type Orders interface {
	Get(ctx context.Context, id string) (*order.Order, []order.Item, error)
	Transition(ctx context.Context, id string, to order.Status, note string) (*order.Order, error)
}

type Notifier interface {
	Send(ctx context.Context, m notify.Message)
}

type Broadcaster interface {
	Publish(topic, typ string, data any)
}

// View is what clients see of a code.
type View struct {
	State
	Status           Status `json:"status"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type Service struct {
	store    Store
	orders   Orders
	notifier Notifier
	hub      Broadcaster

	ttl    time.Duration
	digits int
	cost   int
	tick   time.Duration
	now    func() time.Time

	mu         sync.Mutex
	countdowns map[string]*Countdown
}

func NewService(store Store, orders Orders, notifier Notifier, hub Broadcaster, cfg config.DeliveryConfig) *Service {
	ttl := cfg.CodeTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	digits := cfg.CodeDigits
	if digits <= 0 {
		digits = 6
	}
	return &Service{
		store:      store,
		orders:     orders,
		notifier:   notifier,
		hub:        hub,
		ttl:        ttl,
		digits:     digits,
		cost:       bcrypt.DefaultCost,
		tick:       time.Second,
		now:        time.Now,
		countdowns: map[string]*Countdown{},
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) view(st State) *View {
	now := s.now()
	return &View{State: st, Status: StatusAt(st, now), RemainingSeconds: int(Remaining(st, now).Seconds())}
}

// Status reports the current code state of an order.
func (s *Service) Status(ctx context.Context, orderID string) (*View, error) {
	rec, err := s.store.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(rec.State), nil
}

// Generate issues a fresh code for an order that is out for delivery and
// returns the plaintext once. Only the hash is stored.
func (s *Service) Generate(ctx context.Context, orderID string) (string, *View, error) {
	o, _, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return "", nil, err
	}
	switch {
	case o.Type != order.TypeDelivery:
		return "", nil, fmt.Errorf("%w: %s order", ErrNotDeliverable, o.Type)
	case o.Status != order.StatusReadyForDelivery && o.Status != order.StatusPickedUp && o.Status != order.StatusInTransit:
		return "", nil, fmt.Errorf("%w: order is %s", ErrNotDeliverable, o.Status)
	}

	code, err := NewCode(s.digits)
	if err != nil {
		return "", nil, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash code: %w", err)
	}
	generated := s.now().UTC()
	expires := generated.Add(s.ttl)
	if err := s.store.SaveCode(ctx, orderID, string(hash), generated, expires); err != nil {
		return "", nil, err
	}

	st := State{OrderID: orderID, GeneratedAt: &generated, ExpiresAt: &expires}
	s.startCountdown(orderID, expires)
	s.send(ctx, notify.Message{
		Audience: notify.AudienceOrder,
		Kind:     notify.KindCodeGenerated,
		OrderID:  orderID,
		Text:     fmt.Sprintf("delivery code issued, valid until %s", expires.Format("15:04")),
	})
	logging.Ctx(ctx).Info().Str("order_id", orderID).Time("expires_at", expires).Msg("delivery code generated")
	return code, s.view(st), nil
}

// Confirm redeems a code. An in-transit order is then marked delivered.
func (s *Service) Confirm(ctx context.Context, orderID, code, by string) (*View, error) {
	rec, err := s.store.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch StatusAt(rec.State, s.now()) {
	case StatusConfirmed:
		return nil, ErrAlreadyConfirmed
	case StatusNoCode:
		return nil, ErrNoCode
	case StatusExpired:
		return nil, ErrCodeExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.Hash), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrCodeMismatch
		}
		return nil, err
	}

	at := s.now().UTC()
	if err := s.store.MarkConfirmed(ctx, orderID, by, at); err != nil {
		return nil, err
	}
	s.stopCountdown(orderID)

	st := rec.State
	st.ConfirmedAt, st.ConfirmedBy = &at, &by
	v := s.view(st)
	s.broadcast(orderID, v)
	s.send(ctx, notify.Message{
		Audience: notify.AudienceOrder,
		Kind:     notify.KindCodeConfirmed,
		OrderID:  orderID,
		Text:     "delivery code confirmed by " + by,
	})

	o, _, err := s.orders.Get(ctx, orderID)
	if err == nil && o.Status == order.StatusInTransit {
		if _, err := s.orders.Transition(ctx, orderID, order.StatusDelivered, "delivery code confirmed"); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("order_id", orderID).Msg("mark delivered after code confirmation")
		}
	}
	return v, nil
}

// Close stops every running countdown.
func (s *Service) Close() {
	s.mu.Lock()
	cds := s.countdowns
	s.countdowns = map[string]*Countdown{}
	s.mu.Unlock()
	for _, c := range cds {
		c.Stop()
	}
}

func (s *Service) startCountdown(orderID string, expires time.Time) {
	s.stopCountdown(orderID)

	st := State{OrderID: orderID, ExpiresAt: &expires}
	s.mu.Lock()
	defer s.mu.Unlock()
	var c *Countdown
	c = StartCountdown(expires, s.tick, s.now,
		func(rem time.Duration) {
			s.broadcast(orderID, &View{State: st, Status: StatusActive, RemainingSeconds: int(rem.Seconds())})
		},
		func() {
			s.broadcast(orderID, &View{State: st, Status: StatusExpired})
			s.send(context.Background(), notify.Message{
				Audience: notify.AudienceOrder,
				Kind:     notify.KindNote,
				OrderID:  orderID,
				Text:     "delivery code expired",
			})
			s.mu.Lock()
			if s.countdowns[orderID] == c {
				delete(s.countdowns, orderID)
			}
			s.mu.Unlock()
		})
	s.countdowns[orderID] = c
}

func (s *Service) stopCountdown(orderID string) {
	s.mu.Lock()
	c, ok := s.countdowns[orderID]
	delete(s.countdowns, orderID)
	s.mu.Unlock()
	if ok {
		c.Stop()
	}
}

func (s *Service) broadcast(orderID string, v *View) {
	if s.hub != nil {
		s.hub.Publish(Topic(orderID), MessageType, v)
	}
}

func (s *Service) send(ctx context.Context, m notify.Message) {
	if s.notifier != nil {
		s.notifier.Send(ctx, m)
	}
}
