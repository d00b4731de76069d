package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeMC777/backoffice-resto/internal/cashier"
	"github.com/MikeMC777/backoffice-resto/internal/catalog"
	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/customer"
	"github.com/MikeMC777/backoffice-resto/internal/db"
	"github.com/MikeMC777/backoffice-resto/internal/delivery"
	"github.com/MikeMC777/backoffice-resto/internal/driver"
	"github.com/MikeMC777/backoffice-resto/internal/earnings"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/notify"
	"github.com/MikeMC777/backoffice-resto/internal/order"
	"github.com/MikeMC777/backoffice-resto/internal/realtime"
	"github.com/MikeMC777/backoffice-resto/internal/supervisor"
	"github.com/MikeMC777/backoffice-resto/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()
	if cfg.Database.Migrate {
		if err := db.Migrate(ctx, pool, cfg.Realtime.Channel); err != nil {
			logging.Fatal().Err(err).Msg("migrate")
		}
	}

	var pub notify.Publisher = notify.Nop{}
	if cfg.AMQP.Enabled {
		amqp, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			// notifications are best effort; keep serving without the fan-out
			logging.Warn().Err(err).Msg("amqp unavailable, notifications stay local")
		} else {
			defer amqp.Close()
			pub = amqp
		}
	}
	notes := notify.NewPGRepo(pool)
	notifier := notify.NewDispatcher(pub, notes)

	hub := realtime.NewHub()
	listener := realtime.NewListener(pool, cfg.Realtime.Channel)
	realtime.Forward(listener.Dispatcher, hub, "orders", realtime.TopicOrders)
	realtime.Forward(listener.Dispatcher, hub, "drivers", realtime.TopicDrivers)
	realtime.Forward(listener.Dispatcher, hub, "order_driver_assignments", realtime.TopicDrivers)

	orders := order.NewService(order.NewPGRepo(pool), notifier)
	drivers := driver.NewService(driver.NewPGRepo(pool), orders, notifier)
	codes := delivery.NewService(delivery.NewPGStore(pool), orders, notifier, hub, cfg.Delivery)
	defer codes.Close()

	trackingMgr := tracking.NewManager(
		tracking.SettingsFrom(cfg.Tracking),
		tracking.NewDirectionsClient(cfg.Tracking),
		hub, orders, drivers,
	)
	trackingMgr.Subscribe(listener.Dispatcher)
	defer trackingMgr.CloseAll()

	menu := catalog.NewPGRepo(pool)
	draftStore, err := cashier.OpenBadgerDraftStore(cfg.Drafts.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Drafts.Path).Msg("open draft store")
	}
	defer draftStore.Close()

	a := &app{
		orders:    orders,
		drivers:   drivers,
		codes:     codes,
		tracking:  trackingMgr,
		cashier:   cashier.NewService(menu, orders, cfg.DeliveryFee()),
		drafts:    cashier.NewDrafts(draftStore),
		menu:      menu,
		customers: customer.NewPGRepo(pool),
		earnings:  earnings.NewService(earnings.NewPGRepo(pool), earnings.RatesFrom(cfg.Earnings)),
		notes:     notes,
		hub:       hub,
		ready:     pool.Ping,
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddRealtime(supervisor.Named{Runner: hub, Name: "websocket-hub"})
	tree.AddRealtime(supervisor.Named{Runner: listener, Name: "change-listener"})
	tree.AddAPI(supervisor.NewHTTPService(srv, cfg.Server.ShutdownTimeout))
	tree.AddAPI(supervisor.NewHealthService(cfg.Server.GRPCAddr, pool.Ping))

	logging.Info().Str("addr", cfg.Server.Addr).Str("grpc", cfg.Server.GRPCAddr).Msg("backoffice-service starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor stopped")
	}
	logging.Info().Msg("backoffice-service stopped")
}
