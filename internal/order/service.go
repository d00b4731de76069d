package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/metrics"
	"github.com/MikeMC777/backoffice-resto/internal/notify"
)

// Notifier receives the messages produced by order writes.
type Notifier interface {
	Send(ctx context.Context, m notify.Message)
}

type Service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier, now: time.Now}
}

// WithClock replaces the time source; tests use it to pin timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Get(ctx context.Context, id string) (*Order, []Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Items(ctx context.Context, id string) ([]Item, error) {
	if _, _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetItems(ctx, id)
}

// Create persists a new pending order with its items as one atomic write.
func (s *Service) Create(ctx context.Context, o *Order, items []Item, notes ...string) error {
	if o.Status == "" {
		o.Status = StatusPending
	}
	if err := s.repo.CreateWithItems(ctx, o, items, notes...); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	s.send(ctx, notify.Message{
		Audience: notify.AudienceOrder,
		Kind:     notify.KindOrderCreated,
		OrderID:  o.ID,
		Text:     fmt.Sprintf("new %s order, total %s", o.Type, o.Total.StringFixed(0)),
	})
	return nil
}

// Assignment returns the order's open driver assignment, or nil.
func (s *Service) Assignment(ctx context.Context, id string) (*Assignment, error) {
	return s.repo.OpenAssignment(ctx, id)
}

// Actions lists the statuses the order can move to right now.
func (s *Service) Actions(ctx context.Context, id string) ([]Status, error) {
	o, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.OpenAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	return AllowedTargets(o.Status, a.Open()), nil
}

// Transition validates and applies a status change. Invalid moves are rejected
// before anything is written.
func (s *Service) Transition(ctx context.Context, id string, to Status, note string) (*Order, error) {
	o, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.OpenAssignment(ctx, id)
	if err != nil {
		return nil, err
	}

	hadDriver := a.Open()
	var driverID string
	if hadDriver {
		driverID = a.DriverID
	}
	if err := CanTransition(o.Status, to, hadDriver); err != nil {
		metrics.OrderTransitions.WithLabelValues(string(o.Status), string(to), "rejected").Inc()
		return nil, err
	}

	t := Transition{OrderID: id, From: o.Status, To: to, At: s.now().UTC(), Note: note}
	if err := s.repo.ApplyTransition(ctx, t); err != nil {
		metrics.OrderTransitions.WithLabelValues(string(o.Status), string(to), "failed").Inc()
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	metrics.OrderTransitions.WithLabelValues(string(o.Status), string(to), "applied").Inc()
	logging.Ctx(ctx).Info().Str("order_id", id).Str("from", string(t.From)).Str("to", string(to)).Msg("order status changed")

	text := fmt.Sprintf("order %s is now %s", shortID(id), to)
	if note != "" {
		text += ": " + note
	}
	s.send(ctx, notify.Message{Audience: notify.AudienceOrder, Kind: notify.KindStatusChanged, OrderID: id, Text: text})
	if hadDriver {
		s.send(ctx, notify.Message{Audience: notify.AudienceDriver, Kind: notify.KindStatusChanged, OrderID: id, DriverID: driverID, Text: text})
	}

	updated, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// IsRejection reports whether err is a local validation failure of Transition.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrDriverRequired)
}

func (s *Service) send(ctx context.Context, m notify.Message) {
	if s.notifier != nil {
		s.notifier.Send(ctx, m)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
