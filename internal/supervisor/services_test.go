package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
)

type fakeServer struct {
	started  chan struct{}
	stop     chan struct{}
	shutdown atomic.Bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}), stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	close(f.started)
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	close(f.stop)
	return nil
}

func TestHTTPService_ShutsDownOnCancel(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPService(srv, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if !srv.shutdown.Load() {
		t.Fatal("Shutdown not called")
	}
}

type failing struct{}

func (failing) ListenAndServe() error { return errors.New("address in use") }
func (failing) Shutdown(context.Context) error { return nil }

func TestHTTPService_ReportsListenErrors(t *testing.T) {
	err := NewHTTPService(failing{}, 0).Serve(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestHealthService_FollowsCheck(t *testing.T) {
	var fail atomic.Bool
	svc := NewHealthService("127.0.0.1:0", func(context.Context) error {
		if fail.Load() {
			return errors.New("db down")
		}
		return nil
	})

	svc.poll(context.Background())
	resp, err := svc.Health().Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("resp=%v err=%v", resp, err)
	}

	fail.Store(true)
	svc.poll(context.Background())
	resp, _ = svc.Health().Check(context.Background(), &healthpb.HealthCheckRequest{})
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status=%v", resp.Status)
	}
}

type countingRunner struct{ runs atomic.Int32 }

func (c *countingRunner) Serve(ctx context.Context) error {
	c.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestTree_RunsServices(t *testing.T) {
	tree := NewTree(logging.NewSlogLogger(), TreeConfig{ShutdownTimeout: time.Second})
	r := &countingRunner{}
	tree.AddRealtime(Named{Runner: r, Name: "counter"})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for r.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-errCh
	if r.runs.Load() != 1 {
		t.Fatalf("runs=%d", r.runs.Load())
	}
}
