// Package notify stores order/driver notifications and fans them out to
// other consumers over AMQP.
package notify

import (
	"context"
	"time"
)

type Audience string

const (
	AudienceOrder  Audience = "order"
	AudienceDriver Audience = "driver"
)

// Message kinds published on the fan-out exchange.
const (
	KindOrderCreated   = "order.created"
	KindStatusChanged  = "order.status_changed"
	KindDriverAssigned = "driver.assigned"
	KindCodeGenerated  = "delivery.code_generated"
	KindCodeConfirmed  = "delivery.code_confirmed"
	KindNote           = "note"
)

type Message struct {
	ID        string    `json:"id"`
	Audience  Audience  `json:"audience"`
	Kind      string    `json:"kind"`
	OrderID   string    `json:"order_id,omitempty"`
	DriverID  string    `json:"driver_id,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, m Message) error
}

// Nop discards messages; used when AMQP is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Message) error { return nil }
