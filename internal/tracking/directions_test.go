package tracking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MikeMC777/backoffice-resto/internal/config"
)

func TestDirectionsClient_Route(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":{"type":"LineString","coordinates":[[-4.0,5.3],[-4.01,5.31]]},"duration":600,"distance":2500}]}`))
	}))
	defer srv.Close()

	c := NewDirectionsClient(config.TrackingConfig{DirectionsURL: srv.URL + "/", RequestTimeout: time.Second})
	r, err := c.Route(context.Background(), Point{Lat: 5.3, Lng: -4.0}, Point{Lat: 5.31, Lng: -4.01})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if !strings.HasPrefix(gotPath, "/route/v1/driving/-4.000000,5.300000;") {
		t.Fatalf("path=%s", gotPath)
	}
	if !strings.Contains(gotQuery, "geometries=geojson") {
		t.Fatalf("query=%s", gotQuery)
	}
	if r.Duration != 10*time.Minute || r.DistanceKm != 2.5 || len(r.Coordinates) != 2 {
		t.Fatalf("route=%+v", r)
	}
}

func TestDirectionsClient_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	c := NewDirectionsClient(config.TrackingConfig{DirectionsURL: srv.URL})
	if _, err := c.Route(context.Background(), Point{}, Point{}); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err=%v", err)
	}
}

func TestDirectionsClient_BreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewDirectionsClient(config.TrackingConfig{DirectionsURL: srv.URL})
	for i := 0; i < 5; i++ {
		if _, err := c.Route(context.Background(), Point{}, Point{}); err == nil {
			t.Fatal("expected upstream failure")
		}
	}
	if _, err := c.Route(context.Background(), Point{}, Point{}); err == nil {
		t.Fatal("expected open breaker")
	}
	if calls != 5 {
		t.Fatalf("upstream called %d times, breaker should have short-circuited", calls)
	}
}
