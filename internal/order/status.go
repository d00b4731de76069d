package order

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusPending          Status = "pending"
	StatusAccepted         Status = "accepted"
	StatusReadyForDelivery Status = "ready_for_delivery"
	StatusPickedUp         Status = "picked_up"
	StatusInTransit        Status = "in_transit"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
)

// AllStatuses lists the states in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusAccepted,
	StatusReadyForDelivery,
	StatusPickedUp,
	StatusInTransit,
	StatusDelivered,
	StatusCancelled,
}

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDriverRequired    = errors.New("transition requires an assigned driver")
	ErrUnknownStatus     = errors.New("unknown status")
)

// transitions is the only source of truth for allowed moves. Terminal states
// have no entry.
var transitions = map[Status][]Status{
	StatusPending:          {StatusAccepted, StatusCancelled},
	StatusAccepted:         {StatusReadyForDelivery, StatusCancelled},
	StatusReadyForDelivery: {StatusPickedUp, StatusCancelled},
	StatusPickedUp:         {StatusInTransit, StatusCancelled},
	StatusInTransit:        {StatusDelivered, StatusCancelled},
}

func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// RequiresDriver reports whether entering s needs an open driver assignment.
func (s Status) RequiresDriver() bool {
	return s == StatusPickedUp || s == StatusInTransit
}

// CanTransition validates from -> to. It never touches storage.
func CanTransition(from, to Status, hasOpenAssignment bool) error {
	allowed := false
	for _, t := range transitions[from] {
		if t == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if to.RequiresDriver() && !hasOpenAssignment {
		return fmt.Errorf("%w: %s -> %s", ErrDriverRequired, from, to)
	}
	return nil
}

// AllowedTargets is what the dashboard offers for an order in state from.
func AllowedTargets(from Status, hasOpenAssignment bool) []Status {
	out := make([]Status, 0, 2)
	for _, t := range transitions[from] {
		if t.RequiresDriver() && !hasOpenAssignment {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TimestampColumn is the orders column stamped when entering s.
func TimestampColumn(s Status) string {
	switch s {
	case StatusAccepted:
		return "accepted_at"
	case StatusReadyForDelivery:
		return "ready_at"
	case StatusPickedUp:
		return "picked_up_at"
	case StatusInTransit:
		return "in_transit_at"
	case StatusDelivered:
		return "actual_delivery_time"
	case StatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}
