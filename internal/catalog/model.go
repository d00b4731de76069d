// Package catalog stores the menu: categories, menu items and the extras and
// garnitures that can be added to them.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Available bool   `json:"available"`
}

type MenuItem struct {
	ID          string          `json:"id"`
	CategoryID  *string         `json:"category_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	// Stock is nil when the item is not stock-tracked.
	Stock     *int      `json:"stock,omitempty"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Kind string

const (
	KindExtra     Kind = "extra"
	KindGarniture Kind = "garniture"
)

type Supplement struct {
	ID         string          `json:"id"`
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Kind       Kind            `json:"kind"`
	Price      decimal.Decimal `json:"price"`
	Obligatory bool            `json:"obligatory"`
	Available  bool            `json:"available"`
}

type Query struct {
	Q             string
	CategoryID    string
	AvailableOnly bool
	Limit         int
	Offset        int
}
