package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/order"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var defaultRates = RatesFrom(config.EarningsConfig{CommissionRate: 0.05, PendingShare: 0.10})

func at(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 12, 0, 0, 0, time.UTC) }

func fixture() []Row {
	return []Row{
		{DriverID: "a", DriverName: "Koffi", OrderID: "1", OrderStatus: order.StatusDelivered, OrderTotal: d(10000), OrderCreatedAt: at(2026, 2, 3)},
		{DriverID: "a", DriverName: "Koffi", OrderID: "2", OrderStatus: order.StatusDelivered, OrderTotal: d(20000), OrderCreatedAt: at(2026, 3, 1)},
		{DriverID: "a", DriverName: "Koffi", OrderID: "3", OrderStatus: order.StatusDelivered, OrderTotal: d(10000), OrderCreatedAt: at(2026, 3, 20)},
		{DriverID: "a", DriverName: "Koffi", OrderID: "4", OrderStatus: order.StatusInTransit, OrderTotal: d(50000), OrderCreatedAt: at(2026, 3, 21)},
		{DriverID: "b", DriverName: "Aya", OrderID: "5", OrderStatus: order.StatusCancelled, OrderTotal: d(8000), OrderCreatedAt: at(2026, 3, 2)},
		{DriverID: "c", DriverName: "Yao"},
	}
}

func TestAggregate_Commission(t *testing.T) {
	es := Aggregate(fixture(), defaultRates, at(2026, 3, 25))
	if len(es) != 3 {
		t.Fatalf("drivers=%d", len(es))
	}
	a := es[0]
	if a.DriverID != "a" || a.Delivered != 3 || a.Other != 1 {
		t.Fatalf("a=%+v", a)
	}
	if !a.DeliveredTotal.Equal(d(40000)) || !a.Commission.Equal(d(2000)) || !a.Pending.Equal(d(200)) {
		t.Fatalf("total=%s commission=%s pending=%s", a.DeliveredTotal, a.Commission, a.Pending)
	}
	if !a.CurrentMonth.Equal(d(1500)) || !a.PreviousMonth.Equal(d(500)) {
		t.Fatalf("current=%s previous=%s", a.CurrentMonth, a.PreviousMonth)
	}
	if a.Change == nil || *a.Change != 200 {
		t.Fatalf("change=%v", a.Change)
	}
	if len(a.Months) != 2 || a.Months[0].Month != "2026-02" || a.Months[1].Deliveries != 2 {
		t.Fatalf("months=%+v", a.Months)
	}

	for _, e := range es[1:] {
		if !e.Commission.IsZero() || e.Delivered != 0 || e.Change != nil {
			t.Fatalf("driver %s should earn nothing: %+v", e.DriverID, e)
		}
	}
	if es[1].Other+es[2].Other != 1 {
		t.Fatal("cancelled order should count as not delivered")
	}
}

func TestAggregate_PreviousMonthAcrossYear(t *testing.T) {
	rows := []Row{
		{DriverID: "a", OrderID: "1", OrderStatus: order.StatusDelivered, OrderTotal: d(20000), OrderCreatedAt: at(2025, 12, 30)},
		{DriverID: "a", OrderID: "2", OrderStatus: order.StatusDelivered, OrderTotal: d(10000), OrderCreatedAt: at(2026, 1, 2)},
	}
	es := Aggregate(rows, defaultRates, at(2026, 1, 31))
	if !es[0].PreviousMonth.Equal(d(1000)) || !es[0].CurrentMonth.Equal(d(500)) {
		t.Fatalf("%+v", es[0])
	}
	if *es[0].Change != -50 {
		t.Fatalf("change=%v", *es[0].Change)
	}
}

func TestAggregate_ConfiguredRates(t *testing.T) {
	rates := RatesFrom(config.EarningsConfig{CommissionRate: 0.1, PendingShare: 0.5})
	es := Aggregate(fixture()[:1], rates, at(2026, 2, 10))
	if !es[0].Commission.Equal(d(1000)) || !es[0].Pending.Equal(d(500)) {
		t.Fatalf("%+v", es[0])
	}
}

func TestPercentChange(t *testing.T) {
	if PercentChange(decimal.Zero, d(10)) != nil {
		t.Fatal("zero base should give nil")
	}
	if got := *PercentChange(d(3), d(4)); got != 33.33 {
		t.Fatalf("got %v", got)
	}
}

type stubRepo struct{ rows []Row }

func (s stubRepo) Rows(_ context.Context, driverID string) ([]Row, error) {
	if driverID == "" {
		return s.rows, nil
	}
	var out []Row
	for _, r := range s.rows {
		if r.DriverID == driverID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestService(t *testing.T) {
	svc := NewService(stubRepo{rows: fixture()}, defaultRates).WithClock(func() time.Time { return at(2026, 3, 25) })

	r, err := svc.Report(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Commission.Equal(d(2000)) || !r.Pending.Equal(d(200)) || len(r.Drivers) != 3 {
		t.Fatalf("report=%+v", r)
	}

	one, err := svc.ForDriver(context.Background(), "a")
	if err != nil || one.Delivered != 3 {
		t.Fatalf("one=%+v err=%v", one, err)
	}
	if _, err := svc.ForDriver(context.Background(), "zz"); err != ErrNotFound {
		t.Fatalf("err=%v", err)
	}
}
