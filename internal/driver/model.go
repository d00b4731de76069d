package driver

import "time"

type Driver struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	Active            bool       `json:"active"`
	Available         bool       `json:"available"`
	Lat               *float64   `json:"lat,omitempty"`
	Lng               *float64   `json:"lng,omitempty"`
	PositionUpdatedAt *time.Time `json:"position_updated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// HasFix reports whether a GPS position has ever been received.
func (d *Driver) HasFix() bool { return d.Lat != nil && d.Lng != nil }

// Flags is a partial update of the dispatch flags; nil fields are left as-is.
type Flags struct {
	Active    *bool `json:"active"`
	Available *bool `json:"available"`
}
