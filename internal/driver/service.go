package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/notify"
	"github.com/MikeMC777/backoffice-resto/internal/order"
)

var (
	ErrDriverUnavailable  = errors.New("driver is inactive or unavailable")
	ErrDriverBusy         = errors.New("driver already has an open assignment")
	ErrOrderNotAssignable = errors.New("order cannot take a driver in its current state")
	ErrInvalidPosition    = errors.New("coordinates out of range")
)

// Orders is the slice of the order service that dispatch needs.
type Orders interface {
	Get(ctx context.Context, id string) (*order.Order, []order.Item, error)
	Assignment(ctx context.Context, id string) (*order.Assignment, error)
	Transition(ctx context.Context, id string, to order.Status, note string) (*order.Order, error)
}

type Notifier interface {
	Send(ctx context.Context, m notify.Message)
}

type Service struct {
	repo     Repository
	orders   Orders
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, orders Orders, notifier Notifier) *Service {
	return &Service{repo: repo, orders: orders, notifier: notifier, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Create(ctx context.Context, name, phone string) (*Driver, error) {
	d := &Driver{ID: uuid.NewString(), Name: name, Phone: phone, Active: true, Available: true}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Driver, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Active(ctx context.Context) ([]Driver, error) {
	return s.repo.ListActive(ctx)
}

// Available lists drivers that can take a new order right now.
func (s *Service) Available(ctx context.Context) ([]Driver, error) {
	return s.repo.ListAvailable(ctx)
}

func (s *Service) SetFlags(ctx context.Context, id string, f Flags) (*Driver, error) {
	if err := s.repo.SetFlags(ctx, id, f); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// UpdatePosition records a GPS fix reported by the driver app. The row update
// reaches live tracking through the change feed.
func (s *Service) UpdatePosition(ctx context.Context, id string, lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidPosition
	}
	return s.repo.UpdatePosition(ctx, id, lat, lng, s.now().UTC())
}

// Assign attaches a driver to a delivery order. An accepted order is moved
// to ready_for_delivery once the assignment is written.
func (s *Service) Assign(ctx context.Context, orderID, driverID string) (*order.Assignment, error) {
	d, err := s.repo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !d.Active || !d.Available {
		return nil, ErrDriverUnavailable
	}
	busy, err := s.repo.OpenAssignmentForDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if busy != nil {
		return nil, fmt.Errorf("%w: order %s", ErrDriverBusy, busy.OrderID)
	}

	o, _, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Type != order.TypeDelivery ||
		(o.Status != order.StatusAccepted && o.Status != order.StatusReadyForDelivery) {
		return nil, fmt.Errorf("%w: %s order is %s", ErrOrderNotAssignable, o.Type, o.Status)
	}
	open, err := s.orders.Assignment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrOrderAssigned
	}

	a := &order.Assignment{ID: uuid.NewString(), OrderID: orderID, DriverID: driverID, AssignedAt: s.now().UTC()}
	if err := s.repo.InsertAssignment(ctx, a); err != nil {
		return nil, err
	}
	log := logging.Ctx(ctx)
	log.Info().Str("order_id", orderID).Str("driver_id", driverID).Msg("driver assigned")

	if o.Status == order.StatusAccepted {
		if _, err := s.orders.Transition(ctx, orderID, order.StatusReadyForDelivery, ""); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("advance assigned order")
		}
	}
	if s.notifier != nil {
		s.notifier.Send(ctx, notify.Message{
			Audience: notify.AudienceDriver,
			Kind:     notify.KindDriverAssigned,
			OrderID:  orderID,
			DriverID: driverID,
			Text:     fmt.Sprintf("new delivery: %s, %s", o.CustomerName, o.Address),
		})
	}
	return a, nil
}
