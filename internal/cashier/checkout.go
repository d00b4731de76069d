package cashier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/backoffice-resto/internal/catalog"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/metrics"
	"github.com/MikeMC777/backoffice-resto/internal/order"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrMissingAddress = errors.New("delivery orders need an address or a location")
	ErrUnknownType    = errors.New("unknown order type")
)

// Menu is the catalog lookup the cashier prices lines from.
type Menu interface {
	GetItem(ctx context.Context, id string) (*catalog.MenuItem, error)
	Supplements(ctx context.Context, menuItemID string) ([]catalog.Supplement, error)
}

// Orders persists an order with its items and notes in one transaction.
type Orders interface {
	Create(ctx context.Context, o *order.Order, items []order.Item, notes ...string) error
}

// LineRequest is a line as entered at the counter; prices come from the menu.
type LineRequest struct {
	MenuItemID   string   `json:"menu_item_id" validate:"required,uuid"`
	ExtraIDs     []string `json:"extra_ids"`
	GarnitureIDs []string `json:"garniture_ids"`
	Quantity     int      `json:"quantity" validate:"required,min=1,max=99"`
	Note         string   `json:"note" validate:"max=280"`
}

type CheckoutRequest struct {
	CustomerID    *string    `json:"customer_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	Type          order.Type `json:"order_type"`
	Address       string     `json:"address"`
	Lat           *float64   `json:"lat"`
	Lng           *float64   `json:"lng"`
	Cart          Cart       `json:"cart"`
	Payment       Payment    `json:"payment"`
	Notes         string     `json:"notes"`
}

// Receipt summarises a successful checkout.
type Receipt struct {
	Order    *order.Order    `json:"order"`
	Items    []order.Item    `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Fee      decimal.Decimal `json:"delivery_fee"`
	Total    decimal.Decimal `json:"total"`
	Change   decimal.Decimal `json:"change"`
}

type Service struct {
	menu   Menu
	orders Orders
	fee    decimal.Decimal
}

func NewService(menu Menu, orders Orders, deliveryFee decimal.Decimal) *Service {
	return &Service{menu: menu, orders: orders, fee: deliveryFee}
}

// BuildLine prices a line from the current menu and checks the supplement
// choices, obligatory ones included.
func (s *Service) BuildLine(ctx context.Context, req LineRequest) (Line, error) {
	item, err := s.menu.GetItem(ctx, req.MenuItemID)
	if err != nil {
		return Line{}, err
	}
	sups, err := s.menu.Supplements(ctx, req.MenuItemID)
	if err != nil {
		return Line{}, err
	}
	extras, garnitures, err := catalog.Select(*item, sups, req.ExtraIDs, req.GarnitureIDs)
	if err != nil {
		return Line{}, err
	}
	return Line{
		ID:         uuid.NewString(),
		MenuItemID: item.ID,
		Name:       item.Name,
		BasePrice:  item.Price,
		Extras:     choices(extras),
		Garnitures: choices(garnitures),
		Quantity:   req.Quantity,
		Note:       strings.TrimSpace(req.Note),
	}, nil
}

func choices(sups []catalog.Supplement) []Choice {
	out := make([]Choice, 0, len(sups))
	for _, s := range sups {
		out = append(out, Choice{SupplementID: s.ID, Name: s.Name, Price: s.Price})
	}
	return out
}

// AddLine builds a line from the menu and applies it to cart.
func (s *Service) AddLine(ctx context.Context, cart Cart, req LineRequest) (Cart, error) {
	l, err := s.BuildLine(ctx, req)
	if err != nil {
		return cart, err
	}
	return cart.Apply(AddLine{Line: l})
}

// BuildCart prices every request from the menu, in order.
func (s *Service) BuildCart(ctx context.Context, reqs []LineRequest) (Cart, error) {
	var cart Cart
	for _, r := range reqs {
		next, err := s.AddLine(ctx, cart, r)
		if err != nil {
			return Cart{}, err
		}
		cart = next
	}
	return cart, nil
}

// FeeFor is the delivery fee charged for an order type.
func (s *Service) FeeFor(t order.Type) decimal.Decimal {
	if t == order.TypeDelivery {
		return s.fee
	}
	return decimal.Zero
}

// Checkout validates the cart and payment, then writes the order, its items
// and the optional note as one atomic operation. Nothing is written when a
// check fails.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	if req.Cart.Empty() {
		return nil, ErrEmptyCart
	}
	switch req.Type {
	case order.TypeDelivery:
		if strings.TrimSpace(req.Address) == "" && (req.Lat == nil || req.Lng == nil) {
			return nil, ErrMissingAddress
		}
	case order.TypePickup, order.TypeDineIn:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
	for _, l := range req.Cart.Lines {
		if err := l.validate(); err != nil {
			return nil, err
		}
	}

	subtotal := req.Cart.Total()
	fee := s.FeeFor(req.Type)
	total := subtotal.Add(fee)
	change, err := req.Payment.Validate(total)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:               uuid.NewString(),
		CustomerID:       req.CustomerID,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerPhone:    strings.TrimSpace(req.CustomerPhone),
		Type:             req.Type,
		Address:          strings.TrimSpace(req.Address),
		Lat:              req.Lat,
		Lng:              req.Lng,
		Subtotal:         subtotal,
		DeliveryFee:      fee,
		Total:            total,
		Status:           order.StatusPending,
		PaymentMethod:    string(req.Payment.Method),
		PaymentReference: strings.TrimSpace(req.Payment.Reference),
		Notes:            strings.TrimSpace(req.Notes),
		CreatedAt:        time.Now().UTC(),
	}
	if req.Payment.Method == MethodCash {
		o.TenderedAmount = decimal.NewNullDecimal(req.Payment.Tendered)
		o.ChangeAmount = decimal.NewNullDecimal(change)
	}

	items := make([]order.Item, 0, len(req.Cart.Lines))
	for _, l := range req.Cart.Lines {
		menuID := l.MenuItemID
		it := order.Item{
			ID:           uuid.NewString(),
			OrderID:      o.ID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice(),
			TotalPrice:   l.Total(),
			Instructions: l.Note,
			Extras:       selections(l.Extras),
			Garnitures:   selections(l.Garnitures),
		}
		if menuID != "" {
			it.MenuItemID = &menuID
		}
		items = append(items, it)
	}

	var notes []string
	if o.Notes != "" {
		notes = append(notes, o.Notes)
	}
	if err := s.orders.Create(ctx, o, items, notes...); err != nil {
		return nil, err
	}
	metrics.OrdersCreated.WithLabelValues(string(o.Type), o.PaymentMethod).Inc()
	logging.Ctx(ctx).Info().
		Str("order_id", o.ID).
		Str("type", string(o.Type)).
		Str("total", total.String()).
		Int("lines", len(items)).
		Msg("counter order created")

	return &Receipt{Order: o, Items: items, Subtotal: subtotal, Fee: fee, Total: total, Change: change}, nil
}

func selections(cs []Choice) []order.SupplementSelection {
	out := make([]order.SupplementSelection, 0, len(cs))
	for _, c := range cs {
		out = append(out, order.SupplementSelection{SupplementID: c.SupplementID, Name: c.Name, Price: c.Price})
	}
	return out
}
