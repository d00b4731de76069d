package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/metrics"
)

var ErrNoRoute = errors.New("directions: no route found")

// Route is a driving route between two points.
type Route struct {
	Coordinates [][2]float64  `json:"coordinates"` // [lng, lat] pairs, GeoJSON order
	Duration    time.Duration `json:"duration"`
	DistanceKm  float64       `json:"distance_km"`
}

// Directions computes driving routes.
type Directions interface {
	Route(ctx context.Context, from, to Point) (*Route, error)
}

// DirectionsClient talks to an OSRM-compatible routing service.
type DirectionsClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*Route]
}

const breakerName = "directions"

func NewDirectionsClient(cfg config.TrackingConfig) *DirectionsClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[*Route](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// a valid "no route" answer is not an outage
			return err == nil || errors.Is(err, ErrNoRoute)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &DirectionsClient{
		baseURL: strings.TrimRight(cfg.DirectionsURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		cb:      cb,
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Duration float64 `json:"duration"` // seconds
		Distance float64 `json:"distance"` // metres
	} `json:"routes"`
}

func (c *DirectionsClient) Route(ctx context.Context, from, to Point) (*Route, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.DirectionsRequests.WithLabelValues("rejected").Inc()
		return nil, err
	}
	r, err := c.cb.Execute(func() (*Route, error) { return c.fetch(ctx, from, to) })
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.DirectionsRequests.WithLabelValues("rejected").Inc()
	case err != nil:
		metrics.DirectionsRequests.WithLabelValues("failure").Inc()
	default:
		metrics.DirectionsRequests.WithLabelValues("success").Inc()
	}
	return r, err
}

func (c *DirectionsClient) fetch(ctx context.Context, from, to Point) (*Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions: unexpected status %s", res.Status)
	}
	var body osrmResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("directions: decode: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}
	best := body.Routes[0]
	return &Route{
		Coordinates: best.Geometry.Coordinates,
		Duration:    time.Duration(best.Duration * float64(time.Second)),
		DistanceKm:  best.Distance / 1000,
	}, nil
}
