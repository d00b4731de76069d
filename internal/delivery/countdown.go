package delivery

import (
	"sync"
	"time"
)

// Countdown ticks until a code expires, then fires onExpire once and stops.
type Countdown struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartCountdown reports the remaining time every tick while the deadline is
// in the future. onTick and onExpire run on the countdown goroutine.
func StartCountdown(deadline time.Time, tick time.Duration, now func() time.Time,
	onTick func(remaining time.Duration), onExpire func()) *Countdown {
	c := &Countdown{stop: make(chan struct{}), done: make(chan struct{})}
	go c.run(deadline, tick, now, onTick, onExpire)
	return c
}

func (c *Countdown) run(deadline time.Time, tick time.Duration, now func() time.Time,
	onTick func(time.Duration), onExpire func()) {
	defer close(c.done)
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		rem := deadline.Sub(now())
		if rem <= 0 {
			if onExpire != nil {
				onExpire()
			}
			return
		}
		if onTick != nil {
			onTick(rem)
		}
		select {
		case <-c.stop:
			return
		case <-t.C:
		}
	}
}

// Stop ends the countdown without firing onExpire. Safe to call repeatedly.
func (c *Countdown) Stop() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

// Done is closed once the countdown goroutine has exited.
func (c *Countdown) Done() <-chan struct{} { return c.done }
