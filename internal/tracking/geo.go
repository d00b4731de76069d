// Package tracking follows a driver on the way to the restaurant and then to
// the customer, keeping a route overlay and an ETA for dashboard clients.
package tracking

import (
	"math"
	"time"
)

const earthRadiusKm = 6371.0

// CitySpeedKmh is the average speed used when no route duration is known.
const CitySpeedKmh = 25.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Resolve returns the point for lat/lng, or fallback when either is missing.
// ok is false when the fallback was used.
func Resolve(lat, lng *float64, fallback Point) (p Point, ok bool) {
	if lat == nil || lng == nil {
		return fallback, false
	}
	return Point{Lat: *lat, Lng: *lng}, true
}

// Haversine is the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// EstimateETA is the travel time over km at speedKmh.
func EstimateETA(km, speedKmh float64) time.Duration {
	if km <= 0 || speedKmh <= 0 {
		return 0
	}
	return time.Duration(km / speedKmh * float64(time.Hour))
}
