// Package earnings computes driver commissions from their delivery history.
package earnings

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/order"
)

// Rates are fractions: 0.05 is 5%.
type Rates struct {
	Commission   decimal.Decimal
	PendingShare decimal.Decimal
}

func RatesFrom(cfg config.EarningsConfig) Rates {
	return Rates{
		Commission:   decimal.NewFromFloat(cfg.CommissionRate),
		PendingShare: decimal.NewFromFloat(cfg.PendingShare),
	}
}

// Row is one assignment joined to its order. A driver without assignments
// comes as a single row with an empty OrderID.
type Row struct {
	DriverID       string
	DriverName     string
	OrderID        string
	OrderStatus    order.Status
	OrderTotal     decimal.Decimal
	OrderCreatedAt time.Time
}

type Month struct {
	Month      string          `json:"month"` // YYYY-MM
	Deliveries int             `json:"deliveries"`
	Commission decimal.Decimal `json:"commission"`
}

type DriverEarnings struct {
	DriverID   string `json:"driver_id"`
	DriverName string `json:"driver_name"`
	Delivered  int    `json:"delivered"`
	Other      int    `json:"other"`

	DeliveredTotal decimal.Decimal `json:"delivered_total"`
	Commission     decimal.Decimal `json:"commission"`
	Pending        decimal.Decimal `json:"pending"`

	CurrentMonth  decimal.Decimal `json:"current_month"`
	PreviousMonth decimal.Decimal `json:"previous_month"`
	// Change is the month-over-month variation in percent, nil when the
	// previous month earned nothing.
	Change *float64 `json:"change_percent,omitempty"`

	Months []Month `json:"months"`
}

func monthKey(t time.Time) string { return t.UTC().Format("2006-01") }

// Aggregate reduces rows into per-driver earnings. Only delivered orders earn
// commission; they are bucketed by the calendar month the order was created.
// Drivers are returned sorted by commission, highest first.
func Aggregate(rows []Row, rates Rates, now time.Time) []DriverEarnings {
	cur := monthKey(now)
	prev := monthKey(time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0))

	type acc struct {
		e      DriverEarnings
		months map[string]*Month
	}
	byDriver := map[string]*acc{}
	var seen []string

	for _, r := range rows {
		a, ok := byDriver[r.DriverID]
		if !ok {
			a = &acc{
				e:      DriverEarnings{DriverID: r.DriverID, DriverName: r.DriverName},
				months: map[string]*Month{},
			}
			byDriver[r.DriverID] = a
			seen = append(seen, r.DriverID)
		}
		if r.OrderID == "" {
			continue
		}
		if r.OrderStatus != order.StatusDelivered {
			a.e.Other++
			continue
		}
		c := r.OrderTotal.Mul(rates.Commission)
		a.e.Delivered++
		a.e.DeliveredTotal = a.e.DeliveredTotal.Add(r.OrderTotal)
		a.e.Commission = a.e.Commission.Add(c)

		k := monthKey(r.OrderCreatedAt)
		m, ok := a.months[k]
		if !ok {
			m = &Month{Month: k}
			a.months[k] = m
		}
		m.Deliveries++
		m.Commission = m.Commission.Add(c)
	}

	out := make([]DriverEarnings, 0, len(seen))
	for _, id := range seen {
		a := byDriver[id]
		e := a.e
		e.Pending = e.Commission.Mul(rates.PendingShare)
		e.Months = make([]Month, 0, len(a.months))
		for _, m := range a.months {
			e.Months = append(e.Months, *m)
		}
		sort.Slice(e.Months, func(i, j int) bool { return e.Months[i].Month < e.Months[j].Month })
		if m, ok := a.months[cur]; ok {
			e.CurrentMonth = m.Commission
		}
		if m, ok := a.months[prev]; ok {
			e.PreviousMonth = m.Commission
		}
		e.Change = PercentChange(e.PreviousMonth, e.CurrentMonth)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Commission.GreaterThan(out[j].Commission) })
	return out
}

// PercentChange returns (cur-prev)/prev*100, or nil when prev is zero.
func PercentChange(prev, cur decimal.Decimal) *float64 {
	if prev.IsZero() {
		return nil
	}
	f, _ := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return &f
}

// Totals sums the fleet.
func Totals(es []DriverEarnings) (commission, pending decimal.Decimal) {
	for _, e := range es {
		commission = commission.Add(e.Commission)
		pending = pending.Add(e.Pending)
	}
	return commission, pending
}
