package earnings

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("driver not found or inactive")

// Report is the fleet view served to the back-office.
type Report struct {
	Rates struct {
		Commission   decimal.Decimal `json:"commission_rate"`
		PendingShare decimal.Decimal `json:"pending_share"`
	} `json:"rates"`
	Commission decimal.Decimal  `json:"total_commission"`
	Pending    decimal.Decimal  `json:"total_pending"`
	Drivers    []DriverEarnings `json:"drivers"`
	At         time.Time        `json:"generated_at"`
}

type Service struct {
	repo  Repository
	rates Rates
	now   func() time.Time
}

func NewService(repo Repository, rates Rates) *Service {
	return &Service{repo: repo, rates: rates, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Report(ctx context.Context) (*Report, error) {
	rows, err := s.repo.Rows(ctx, "")
	if err != nil {
		return nil, err
	}
	now := s.now()
	r := &Report{Drivers: Aggregate(rows, s.rates, now), At: now.UTC()}
	r.Rates.Commission = s.rates.Commission
	r.Rates.PendingShare = s.rates.PendingShare
	r.Commission, r.Pending = Totals(r.Drivers)
	return r, nil
}

func (s *Service) ForDriver(ctx context.Context, driverID string) (*DriverEarnings, error) {
	rows, err := s.repo.Rows(ctx, driverID)
	if err != nil {
		return nil, err
	}
	es := Aggregate(rows, s.rates, s.now())
	if len(es) == 0 {
		return nil, ErrNotFound
	}
	return &es[0], nil
}
