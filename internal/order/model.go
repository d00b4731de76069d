package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeDelivery Type = "delivery"
	TypePickup   Type = "pickup"
	TypeDineIn   Type = "dine_in"
)

type Order struct {
	ID            string          `json:"id"`
	CustomerID    *string         `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Type          Type            `json:"order_type"`
	Address       string          `json:"address,omitempty"`
	Lat           *float64        `json:"lat,omitempty"`
	Lng           *float64        `json:"lng,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`

	PaymentMethod    string              `json:"payment_method"`
	TenderedAmount   decimal.NullDecimal `json:"tendered_amount"`
	ChangeAmount     decimal.NullDecimal `json:"change_amount"`
	PaymentReference string              `json:"payment_reference,omitempty"`
	Notes            string              `json:"notes,omitempty"`

	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	ReadyAt            *time.Time `json:"ready_at,omitempty"`
	PickedUpAt         *time.Time `json:"picked_up_at,omitempty"`
	InTransitAt        *time.Time `json:"in_transit_at,omitempty"`
	ActualDeliveryTime *time.Time `json:"actual_delivery_time,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	CodeGeneratedAt *time.Time `json:"code_generated_at,omitempty"`
	CodeExpiresAt   *time.Time `json:"code_expires_at,omitempty"`
	CodeConfirmedAt *time.Time `json:"code_confirmed_at,omitempty"`
	CodeConfirmedBy *string    `json:"code_confirmed_by,omitempty"`
}

// HasDeliveryPoint reports whether the customer coordinate is known.
func (o *Order) HasDeliveryPoint() bool {
	return o.Lat != nil && o.Lng != nil
}

// SupplementSelection is an extra or garniture as chosen at order time; the
// price is frozen and does not follow later menu edits.
type SupplementSelection struct {
	SupplementID string          `json:"supplement_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
}

type Item struct {
	ID           string                `json:"id"`
	OrderID      string                `json:"order_id"`
	MenuItemID   *string               `json:"menu_item_id,omitempty"`
	Name         string                `json:"name"`
	Quantity     int                   `json:"quantity"`
	UnitPrice    decimal.Decimal       `json:"unit_price"`
	TotalPrice   decimal.Decimal       `json:"total_price"`
	Instructions string                `json:"instructions,omitempty"`
	Extras       []SupplementSelection `json:"extras"`
	Garnitures   []SupplementSelection `json:"garnitures"`
}

// Assignment joins an order to a driver. DeliveredAt == nil means still open.
type Assignment struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	DriverID    string     `json:"driver_id"`
	AssignedAt  time.Time  `json:"assigned_at"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

func (a *Assignment) Open() bool { return a != nil && a.DeliveredAt == nil }

// Filter narrows order listings. Zero values mean "any".
type Filter struct {
	Statuses []Status
	Type     Type
	From     *time.Time
	To       *time.Time
	Q        string
	Limit    int
	Offset   int
}

// Transition is the write produced by a validated status change.
type Transition struct {
	OrderID string
	From    Status
	To      Status
	At      time.Time
	Note    string
}
