package delivery

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdown_TicksThenExpiresOnce(t *testing.T) {
	var (
		mu    sync.Mutex
		ticks []time.Duration
	)
	var expired atomic.Int32
	deadline := time.Now().Add(55 * time.Millisecond)

	c := StartCountdown(deadline, 10*time.Millisecond, time.Now,
		func(rem time.Duration) {
			mu.Lock()
			ticks = append(ticks, rem)
			mu.Unlock()
		},
		func() { expired.Add(1) })

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not finish")
	}
	c.Stop()

	if expired.Load() != 1 {
		t.Fatalf("onExpire fired %d times", expired.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ticks) < 2 {
		t.Fatalf("got %d ticks", len(ticks))
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] >= ticks[i-1] {
			t.Fatalf("remaining time not decreasing: %v", ticks)
		}
	}
}

func TestCountdown_StopSuppressesExpiry(t *testing.T) {
	var expired atomic.Bool
	c := StartCountdown(time.Now().Add(time.Hour), 5*time.Millisecond, time.Now, nil, func() { expired.Store(true) })
	time.Sleep(20 * time.Millisecond)
	c.Stop()
	c.Stop()
	if expired.Load() {
		t.Fatal("stopped countdown fired expiry")
	}
}

func TestCountdown_PastDeadlineExpiresImmediately(t *testing.T) {
	var ticked atomic.Bool
	done := make(chan struct{})
	StartCountdown(time.Now().Add(-time.Second), time.Second, time.Now,
		func(time.Duration) { ticked.Store(true) },
		func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no expiry")
	}
	if ticked.Load() {
		t.Fatal("expired countdown must not tick")
	}
}
