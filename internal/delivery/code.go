// Package delivery issues and redeems the short numeric codes a customer
// gives the driver at the door.
package delivery

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"
)

type Status string

const (
	StatusNoCode    Status = "no_code"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusConfirmed Status = "confirmed"
)

var (
	ErrNoCode           = errors.New("no delivery code generated")
	ErrCodeExpired      = errors.New("delivery code expired")
	ErrCodeMismatch     = errors.New("delivery code does not match")
	ErrAlreadyConfirmed = errors.New("delivery code already confirmed")
	ErrNotDeliverable   = errors.New("order is not out for delivery")
)

// State is the stored code metadata of one order. The plaintext code is never
// part of it.
type State struct {
	OrderID     string     `json:"order_id"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy *string    `json:"confirmed_by,omitempty"`
}

func (s State) HasCode() bool { return s.GeneratedAt != nil && s.ExpiresAt != nil }

// StatusAt derives the code status at now. Confirmation wins over expiry and
// a code is only valid while now is strictly before its expiry.
func StatusAt(s State, now time.Time) Status {
	switch {
	case s.ConfirmedAt != nil:
		return StatusConfirmed
	case !s.HasCode():
		return StatusNoCode
	case !now.Before(*s.ExpiresAt):
		return StatusExpired
	default:
		return StatusActive
	}
}

// Remaining is the time left before expiry, zero when not active.
func Remaining(s State, now time.Time) time.Duration {
	if StatusAt(s, now) != StatusActive {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// NewCode returns a uniformly random numeric code of the given length,
// leading zeros included.
func NewCode(digits int) (string, error) {
	if digits <= 0 {
		return "", errors.New("code length must be positive")
	}
	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
