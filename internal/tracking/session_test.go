package tracking

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

type fakeDirections struct {
	mu    sync.Mutex
	calls []Point // from-points
	tos   []Point
	err   error
	block chan struct{}
}

func (f *fakeDirections) Route(_ context.Context, from, to Point) (*Route, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, from)
	f.tos = append(f.tos, to)
	if f.err != nil {
		return nil, f.err
	}
	return &Route{
		Coordinates: [][2]float64{{from.Lng, from.Lat}, {to.Lng, to.Lat}},
		Duration:    5 * time.Minute,
		DistanceKm:  Haversine(from, to),
	}, nil
}

func (f *fakeDirections) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recPub struct {
	mu    sync.Mutex
	views []View
}

func (p *recPub) Publish(_ string, _ string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, data.(View))
}

func (p *recPub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.views)
}

var (
	restaurant = Point{Lat: 5.30, Lng: -4.00}
	fallback   = Point{Lat: 5.35, Lng: -4.02}
)

func testSettings() Settings {
	return Settings{Restaurant: restaurant, Default: fallback, Debounce: 20 * time.Millisecond}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_PositionPrefersLiveOverDeclared(t *testing.T) {
	s := NewSession("o1", testSettings(), &fakeDirections{}, nil)
	defer s.Close()

	if p, src := s.Position(); src != SourceDefault || p != fallback {
		t.Fatalf("p=%v src=%s", p, src)
	}
	declared := Point{Lat: 5.31, Lng: -4.01}
	s.SetDriver("d1", &declared)
	if p, src := s.Position(); src != SourceDeclared || p != declared {
		t.Fatalf("p=%v src=%s", p, src)
	}
	live := Point{Lat: 5.32, Lng: -4.03}
	s.UpdatePosition(live)
	if p, src := s.Position(); src != SourceLive || p != live {
		t.Fatalf("p=%v src=%s", p, src)
	}
}

func TestSession_TargetFollowsPhase(t *testing.T) {
	s := NewSession("o1", testSettings(), &fakeDirections{}, nil)
	defer s.Close()
	lat, lng := 5.4, -3.9
	s.SetCustomer(&lat, &lng)

	if s.Target() != restaurant {
		t.Fatal("before pickup the target is the restaurant")
	}
	s.SetPhase(PhaseToCustomer)
	if s.Target() != (Point{Lat: lat, Lng: lng}) {
		t.Fatal("after pickup the target is the customer")
	}
}

func TestSession_CustomerFallsBackToDefault(t *testing.T) {
	s := NewSession("o1", testSettings(), &fakeDirections{}, nil)
	defer s.Close()
	s.SetCustomer(nil, nil)
	s.SetPhase(PhaseToCustomer)
	if s.Target() != fallback {
		t.Fatalf("target=%v", s.Target())
	}
}

func TestSession_BurstOfUpdatesGivesOneRoute(t *testing.T) {
	dir := &fakeDirections{}
	pub := &recPub{}
	s := NewSession("o1", testSettings(), dir, pub)
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.UpdatePosition(Point{Lat: 5.3 + float64(i)/100, Lng: -4})
	}
	waitFor(t, func() bool { return pub.count() == 1 })
	time.Sleep(50 * time.Millisecond)

	if dir.count() != 1 {
		t.Fatalf("directions called %d times", dir.count())
	}
	if got := dir.calls[0]; math.Abs(got.Lat-5.34) > 1e-9 {
		t.Fatalf("route computed from %v, want the latest position", got)
	}
	v := pub.views[0]
	if v.ETASeconds != 300 || v.Overlay.Generation != 1 || len(v.Overlay.Layers) != 3 {
		t.Fatalf("view=%+v", v)
	}
}

func TestSession_OverlayRebuiltOnEveryRoute(t *testing.T) {
	dir := &fakeDirections{}
	pub := &recPub{}
	s := NewSession("o1", testSettings(), dir, pub)
	defer s.Close()

	s.Refresh()
	s.Refresh()
	v := s.View()
	if v.Overlay.Generation != 2 {
		t.Fatalf("generation=%d", v.Overlay.Generation)
	}
	if len(v.Overlay.Layers) != 3 || len(v.Overlay.Sources) != 3 {
		t.Fatalf("overlay=%+v", v.Overlay)
	}
}

func TestSession_FailedLookupKeepsOverlay(t *testing.T) {
	dir := &fakeDirections{}
	pub := &recPub{}
	s := NewSession("o1", testSettings(), dir, pub)
	defer s.Close()

	s.Refresh()
	dir.err = errors.New("upstream down")
	s.Refresh()

	v := s.View()
	if v.Overlay.Generation != 1 || pub.count() != 1 {
		t.Fatalf("failed lookup touched the overlay: gen=%d published=%d", v.Overlay.Generation, pub.count())
	}
}

func TestSession_CloseDropsPendingAndInFlight(t *testing.T) {
	dir := &fakeDirections{block: make(chan struct{})}
	pub := &recPub{}
	s := NewSession("o1", testSettings(), dir, pub)

	done := make(chan struct{})
	go func() {
		s.Refresh()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	s.Close()
	close(dir.block)
	<-done

	s.UpdatePosition(Point{Lat: 1, Lng: 1})
	time.Sleep(50 * time.Millisecond)
	if pub.count() != 0 {
		t.Fatal("closed session published a route")
	}
	if s.Elapsed() != 0 {
		t.Fatal("elapsed counter started without a route")
	}
}

func TestSession_ElapsedStartsAtFirstRoute(t *testing.T) {
	s := NewSession("o1", testSettings(), &fakeDirections{}, nil)
	defer s.Close()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if s.Elapsed() != 0 {
		t.Fatal("counter running before any route")
	}
	s.Refresh()
	now = now.Add(90 * time.Second)
	if s.Elapsed() != 90*time.Second {
		t.Fatalf("elapsed=%s", s.Elapsed())
	}
}
