package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
)

// Dispatcher publishes messages and, for driver-facing ones, stores them.
// Failures are logged and swallowed: a lost notification never fails the
// business write that produced it.
type Dispatcher struct {
	pub  Publisher
	repo Repository
	now  func() time.Time
}

func NewDispatcher(pub Publisher, repo Repository) *Dispatcher {
	if pub == nil {
		pub = Nop{}
	}
	return &Dispatcher{pub: pub, repo: repo, now: time.Now}
}

func (d *Dispatcher) Send(ctx context.Context, m Message) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = d.now().UTC()
	}
	if m.Audience == AudienceDriver && d.repo != nil {
		if err := d.repo.Insert(ctx, &m); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("driver_id", m.DriverID).Msg("store driver notification")
		}
	}
	if err := d.pub.Publish(ctx, m); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", m.Kind).Msg("publish notification")
	}
}
