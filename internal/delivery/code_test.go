package delivery

import (
	"testing"
	"time"
)

func at(t time.Time) *time.Time { return &t }

func TestStatusAt(t *testing.T) {
	T := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	expires := T.Add(15 * time.Minute)

	cases := []struct {
		name  string
		state State
		now   time.Time
		want  Status
	}{
		{"no code", State{}, T, StatusNoCode},
		{"fresh code", State{GeneratedAt: at(T), ExpiresAt: at(expires)}, T.Add(time.Minute), StatusActive},
		{"one nanosecond before expiry", State{GeneratedAt: at(T), ExpiresAt: at(expires)}, expires.Add(-time.Nanosecond), StatusActive},
		{"exactly at expiry", State{GeneratedAt: at(T), ExpiresAt: at(expires)}, expires, StatusExpired},
		{"sixteen minutes later", State{GeneratedAt: at(T), ExpiresAt: at(expires)}, T.Add(16 * time.Minute), StatusExpired},
		{"confirmed before expiry, read after", State{GeneratedAt: at(T), ExpiresAt: at(expires), ConfirmedAt: at(T.Add(10 * time.Minute))}, T.Add(16 * time.Minute), StatusConfirmed},
		{"confirmed without code metadata", State{ConfirmedAt: at(T)}, T, StatusConfirmed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusAt(tc.state, tc.now); got != tc.want {
				t.Fatalf("StatusAt() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	T := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	st := State{GeneratedAt: at(T), ExpiresAt: at(T.Add(15 * time.Minute))}
	if got := Remaining(st, T.Add(5*time.Minute)); got != 10*time.Minute {
		t.Fatalf("Remaining() = %s", got)
	}
	if got := Remaining(st, T.Add(20*time.Minute)); got != 0 {
		t.Fatalf("expired code has %s left", got)
	}
}

func TestNewCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := NewCode(6)
		if err != nil {
			t.Fatal(err)
		}
		if len(c) != 6 {
			t.Fatalf("code %q has length %d", c, len(c))
		}
		for _, r := range c {
			if r < '0' || r > '9' {
				t.Fatalf("code %q is not numeric", c)
			}
		}
		seen[c] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes are not random")
	}
	if _, err := NewCode(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
