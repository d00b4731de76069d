package cashier

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCash        Method = "cash"
	MethodMobileMoney Method = "mobile_money"
)

var (
	ErrInsufficientCash = errors.New("tendered amount is below the order total")
	ErrMissingReference = errors.New("mobile money payment needs a transaction reference")
	ErrUnknownMethod    = errors.New("unknown payment method")
)

type Payment struct {
	Method    Method          `json:"method"`
	Tendered  decimal.Decimal `json:"tendered"`
	Reference string          `json:"reference,omitempty"`
}

// Validate checks the payment against total and returns the change due.
// Change is only non-zero for cash.
func (p Payment) Validate(total decimal.Decimal) (decimal.Decimal, error) {
	switch p.Method {
	case MethodCash:
		if p.Tendered.LessThan(total) {
			return decimal.Zero, ErrInsufficientCash
		}
		return p.Tendered.Sub(total), nil
	case MethodMobileMoney:
		if strings.TrimSpace(p.Reference) == "" {
			return decimal.Zero, ErrMissingReference
		}
		return decimal.Zero, nil
	default:
		return decimal.Zero, ErrUnknownMethod
	}
}
