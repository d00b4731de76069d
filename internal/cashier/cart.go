// Package cashier builds counter orders: an in-memory cart, payment checks
// and the checkout that turns the cart into a stored order.
package cashier

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNegativePrice   = errors.New("prices cannot be negative")
	ErrDuplicateLine   = errors.New("cart line id is empty or already used")
)

// Choice is a supplement picked for a line, priced independently.
type Choice struct {
	SupplementID string          `json:"supplement_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
}

type Line struct {
	ID         string          `json:"id"`
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	BasePrice  decimal.Decimal `json:"base_price"`
	Extras     []Choice        `json:"extras"`
	Garnitures []Choice        `json:"garnitures"`
	Quantity   int             `json:"quantity"`
	Note       string          `json:"note,omitempty"`
}

// UnitPrice is the base price plus every chosen supplement.
func (l Line) UnitPrice() decimal.Decimal {
	p := l.BasePrice
	for _, c := range l.Extras {
		p = p.Add(c.Price)
	}
	for _, c := range l.Garnitures {
		p = p.Add(c.Price)
	}
	return p
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) validate() error {
	if l.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if l.BasePrice.IsNegative() {
		return ErrNegativePrice
	}
	for _, c := range append(append([]Choice(nil), l.Extras...), l.Garnitures...) {
		if c.Price.IsNegative() {
			return ErrNegativePrice
		}
	}
	return nil
}

type Cart struct {
	Lines []Line `json:"lines"`
}

func (c Cart) Total() decimal.Decimal {
	t := decimal.Zero
	for _, l := range c.Lines {
		t = t.Add(l.Total())
	}
	return t
}

func (c Cart) Empty() bool { return len(c.Lines) == 0 }

func (c Cart) index(id string) int {
	for i, l := range c.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Action is one cart mutation.
type Action interface {
	apply(Cart) (Cart, error)
}

type AddLine struct{ Line Line }

type RemoveLine struct{ LineID string }

// SetQuantity re-quantifies a line; zero removes it.
type SetQuantity struct {
	LineID   string
	Quantity int
}

// Apply returns the cart after a; c itself is never modified.
func (c Cart) Apply(a Action) (Cart, error) {
	return a.apply(c)
}

func (a AddLine) apply(c Cart) (Cart, error) {
	if err := a.Line.validate(); err != nil {
		return c, err
	}
	if a.Line.ID == "" || c.index(a.Line.ID) >= 0 {
		return c, fmt.Errorf("%w: %q", ErrDuplicateLine, a.Line.ID)
	}
	lines := make([]Line, 0, len(c.Lines)+1)
	lines = append(lines, c.Lines...)
	return Cart{Lines: append(lines, a.Line)}, nil
}

func (a RemoveLine) apply(c Cart) (Cart, error) {
	i := c.index(a.LineID)
	if i < 0 {
		return c, ErrLineNotFound
	}
	lines := make([]Line, 0, len(c.Lines)-1)
	lines = append(lines, c.Lines[:i]...)
	return Cart{Lines: append(lines, c.Lines[i+1:]...)}, nil
}

func (a SetQuantity) apply(c Cart) (Cart, error) {
	if a.Quantity < 0 {
		return c, ErrInvalidQuantity
	}
	if a.Quantity == 0 {
		return RemoveLine{LineID: a.LineID}.apply(c)
	}
	i := c.index(a.LineID)
	if i < 0 {
		return c, ErrLineNotFound
	}
	lines := append([]Line(nil), c.Lines...)
	lines[i].Quantity = a.Quantity
	return Cart{Lines: lines}, nil
}
