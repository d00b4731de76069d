package driver

import "github.com/MikeMC777/backoffice-resto/internal/order"

// AvailableSet returns the drivers that are active, flagged available and not
// holding any open assignment. Input order is preserved. It is the in-memory
// counterpart of the anti-join in PGRepo.ListAvailable.
func AvailableSet(drivers []Driver, assignments []order.Assignment) []Driver {
	busy := make(map[string]struct{}, len(assignments))
	for i := range assignments {
		if assignments[i].Open() {
			busy[assignments[i].DriverID] = struct{}{}
		}
	}
	out := make([]Driver, 0, len(drivers))
	for _, d := range drivers {
		if !d.Active || !d.Available {
			continue
		}
		if _, ok := busy[d.ID]; ok {
			continue
		}
		out = append(out, d)
	}
	return out
}
