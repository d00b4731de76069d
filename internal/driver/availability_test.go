package driver

import (
	"math/rand"
	"testing"
	"time"

	"github.com/MikeMC777/backoffice-resto/internal/order"
)

func ids(ds []Driver) map[string]bool {
	m := map[string]bool{}
	for _, d := range ds {
		m[d.ID] = true
	}
	return m
}

func TestAvailableSet_BusyDriverExcluded(t *testing.T) {
	drivers := []Driver{
		{ID: "D", Active: true, Available: true},
		{ID: "E", Active: true, Available: true},
	}
	assignments := []order.Assignment{{ID: "a", OrderID: "7", DriverID: "D"}}

	got := ids(AvailableSet(drivers, assignments))
	if got["D"] {
		t.Fatal("driver D holds order 7 and must not be offered")
	}
	if !got["E"] {
		t.Fatal("driver E should be available")
	}
}

func TestAvailableSet_DeliveredAssignmentFreesDriver(t *testing.T) {
	done := time.Now()
	drivers := []Driver{{ID: "D", Active: true, Available: true}}
	assignments := []order.Assignment{{ID: "a", OrderID: "7", DriverID: "D", DeliveredAt: &done}}

	if got := AvailableSet(drivers, assignments); len(got) != 1 {
		t.Fatalf("got %v, want D", got)
	}
}

// Compares against the plain set definition over random fixtures.
func TestAvailableSet_MatchesSetDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	now := time.Now()
	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		drivers := make([]Driver, n)
		for i := range drivers {
			drivers[i] = Driver{ID: string(rune('a' + i)), Active: rng.Intn(2) == 0, Available: rng.Intn(2) == 0}
		}
		var assignments []order.Assignment
		m := rng.Intn(10)
		for i := 0; i < m; i++ {
			a := order.Assignment{DriverID: string(rune('a' + rng.Intn(12)))}
			if rng.Intn(2) == 0 {
				a.DeliveredAt = &now
			}
			assignments = append(assignments, a)
		}

		want := map[string]bool{}
		for _, d := range drivers {
			if d.Active && d.Available {
				want[d.ID] = true
			}
		}
		for _, a := range assignments {
			if a.DeliveredAt == nil {
				delete(want, a.DriverID)
			}
		}

		got := ids(AvailableSet(drivers, assignments))
		if len(got) != len(want) {
			t.Fatalf("round %d: got %v want %v", round, got, want)
		}
		for id := range want {
			if !got[id] {
				t.Fatalf("round %d: missing %s", round, id)
			}
		}
	}
}
