//go:build integration

package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/db"
	"github.com/MikeMC777/backoffice-resto/internal/delivery"
	"github.com/MikeMC777/backoffice-resto/internal/driver"
	"github.com/MikeMC777/backoffice-resto/internal/earnings"
	"github.com/MikeMC777/backoffice-resto/internal/order"
	"github.com/MikeMC777/backoffice-resto/internal/realtime"
	"github.com/MikeMC777/backoffice-resto/internal/testinfra"
)

func TestPostgres_EndToEnd(t *testing.T) {
	pg := testinfra.StartPostgres(t)
	ctx := context.Background()

	pool, err := db.Connect(ctx, config.DatabaseConfig{DSN: pg.DSN, MaxConns: 4})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(ctx, pool, db.DefaultChannel); err != nil {
		t.Fatal(err)
	}
	// idempotent
	if err := db.Migrate(ctx, pool, db.DefaultChannel); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	listener := realtime.NewListener(pool, db.DefaultChannel)
	changes := make(chan realtime.Change, 16)
	listener.Subscribe("orders", "", func(c realtime.Change) { changes <- c })
	lctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = listener.Serve(lctx) }()
	time.Sleep(500 * time.Millisecond)

	orders := order.NewPGRepo(pool)
	drivers := driver.NewPGRepo(pool)

	o := &order.Order{
		ID: uuid.NewString(), CustomerName: "Awa", Type: order.TypeDelivery, Address: "Cocody",
		Subtotal: decimal.NewFromInt(7000), DeliveryFee: decimal.NewFromInt(1000), Total: decimal.NewFromInt(8000),
		Status: order.StatusPending, PaymentMethod: "cash",
		TenderedAmount: decimal.NewNullDecimal(decimal.NewFromInt(10000)),
		ChangeAmount:   decimal.NewNullDecimal(decimal.NewFromInt(2000)),
	}
	items := []order.Item{{ID: uuid.NewString(), Name: "Poulet", Quantity: 2,
		UnitPrice: decimal.NewFromInt(3000), TotalPrice: decimal.NewFromInt(6000),
		Extras: []order.SupplementSelection{{SupplementID: uuid.NewString(), Name: "Piment", Price: decimal.NewFromInt(500)}}}}
	if err := orders.CreateWithItems(ctx, o, items, "sonner"); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		if c.ID != o.ID || c.Op != "INSERT" {
			t.Fatalf("change=%+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change event for the insert")
	}

	got, gotItems, err := orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Total.Equal(decimal.NewFromInt(8000)) || len(gotItems) != 1 || len(gotItems[0].Extras) != 1 {
		t.Fatalf("order=%+v items=%+v", got, gotItems)
	}

	d := &driver.Driver{ID: uuid.NewString(), Name: "Koffi", Active: true, Available: true}
	if err := drivers.Create(ctx, d); err != nil {
		t.Fatal(err)
	}
	avail, _ := drivers.ListAvailable(ctx)
	if len(avail) != 1 {
		t.Fatalf("available=%d", len(avail))
	}

	a := &order.Assignment{ID: uuid.NewString(), OrderID: o.ID, DriverID: d.ID, AssignedAt: time.Now().UTC()}
	if err := drivers.InsertAssignment(ctx, a); err != nil {
		t.Fatal(err)
	}
	dup := &order.Assignment{ID: uuid.NewString(), OrderID: o.ID, DriverID: d.ID, AssignedAt: time.Now().UTC()}
	if err := drivers.InsertAssignment(ctx, dup); !errors.Is(err, driver.ErrOrderAssigned) {
		t.Fatalf("duplicate assignment err=%v", err)
	}
	avail, _ = drivers.ListAvailable(ctx)
	if len(avail) != 0 {
		t.Fatal("busy driver listed as available")
	}

	now := time.Now().UTC()
	for _, s := range []order.Status{order.StatusAccepted, order.StatusReadyForDelivery, order.StatusPickedUp, order.StatusInTransit} {
		if err := orders.ApplyTransition(ctx, order.Transition{OrderID: o.ID, To: s, At: now}); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	codes := delivery.NewPGStore(pool)
	if err := codes.SaveCode(ctx, o.ID, "hash", now, now.Add(15*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := codes.MarkConfirmed(ctx, o.ID, "Koffi", now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	rec, err := codes.Load(ctx, o.ID)
	if err != nil || delivery.StatusAt(rec.State, now.Add(time.Hour)) != delivery.StatusConfirmed {
		t.Fatalf("rec=%+v err=%v", rec, err)
	}

	if err := orders.ApplyTransition(ctx, order.Transition{OrderID: o.ID, To: order.StatusDelivered, At: now}); err != nil {
		t.Fatal(err)
	}
	if open, _ := orders.OpenAssignment(ctx, o.ID); open != nil {
		t.Fatal("assignment still open after delivery")
	}
	avail, _ = drivers.ListAvailable(ctx)
	if len(avail) != 1 {
		t.Fatal("driver not freed after delivery")
	}

	cancelled := &order.Order{
		ID: uuid.NewString(), CustomerName: "Yao", Type: order.TypeDelivery, Address: "Plateau",
		Subtotal: decimal.NewFromInt(2000), Total: decimal.NewFromInt(2000), Status: order.StatusAccepted, PaymentMethod: "cash",
	}
	if err := orders.CreateWithItems(ctx, cancelled, nil); err != nil {
		t.Fatal(err)
	}
	held := &order.Assignment{ID: uuid.NewString(), OrderID: cancelled.ID, DriverID: d.ID, AssignedAt: now}
	if err := drivers.InsertAssignment(ctx, held); err != nil {
		t.Fatal(err)
	}
	if err := orders.ApplyTransition(ctx, order.Transition{OrderID: cancelled.ID, To: order.StatusCancelled, At: now}); err != nil {
		t.Fatal(err)
	}
	avail, _ = drivers.ListAvailable(ctx)
	if len(avail) != 1 {
		t.Fatal("driver not freed after cancellation")
	}

	rows, err := earnings.NewPGRepo(pool).Rows(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	es := earnings.Aggregate(rows, earnings.RatesFrom(config.EarningsConfig{CommissionRate: 0.05, PendingShare: 0.1}), now)
	if len(es) != 1 || !es[0].Commission.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("earnings=%+v", es)
	}
}
