package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Runner is anything with a context-bound Serve loop, like realtime.Hub and
// realtime.Listener.
type Runner interface {
	Serve(ctx context.Context) error
}

// Named gives a Runner a name for suture's log lines.
type Named struct {
	Runner
	Name string
}

func (n Named) String() string { return n.Name }

type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type HTTPService struct {
	server  HTTPServer
	timeout time.Duration
}

func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, timeout: shutdownTimeout}
}

func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		// ctx is already done; shutdown gets its own deadline
		sctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		if err := h.server.Shutdown(sctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// HealthService serves the standard gRPC health protocol. The overall status
// follows Check, polled every interval.
type HealthService struct {
	addr     string
	check    func(context.Context) error
	interval time.Duration
	health   *health.Server
}

func NewHealthService(addr string, check func(context.Context) error) *HealthService {
	return &HealthService{addr: addr, check: check, interval: 10 * time.Second, health: health.NewServer()}
}

// Health exposes the underlying server, mostly for tests.
func (h *HealthService) Health() *health.Server { return h.health }

func (h *HealthService) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", h.addr, err)
	}
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h.health)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	h.poll(ctx)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("grpc server: %w", err)
		case <-t.C:
			h.poll(ctx)
		case <-ctx.Done():
			h.health.Shutdown()
			srv.GracefulStop()
			return ctx.Err()
		}
	}
}

func (h *HealthService) poll(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if h.check != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := h.check(cctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		cancel()
	}
	h.health.SetServingStatus("", status)
}

func (h *HealthService) String() string { return "grpc-health" }
