// Package clock implements the countdown driving a round.
package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultSeconds = 60

// Clock counts down whole seconds. At most one countdown runs at a time.
type Clock struct {
	clock clockwork.Clock

	mu        sync.Mutex
	remaining int
	done      chan struct{}
}

func New(c clockwork.Clock, defaultSeconds int) *Clock {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if defaultSeconds <= 0 {
		defaultSeconds = DefaultSeconds
	}

	return &Clock{
		clock:     c,
		remaining: defaultSeconds,
	}
}

// Start cancels a running countdown and begins a new one. onTick is called with seconds
// before Start returns, then once per elapsed second while time remains. onTimeout is
// called once when the countdown reaches zero, unless Stop or Start preempt it.
// Callbacks of the goroutine run without holding the clock's lock.
func (c *Clock) Start(seconds int, onTick func(remaining int), onTimeout func()) {
	c.mu.Lock()
	c.stop()
	c.remaining = seconds
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	onTick(seconds)

	go c.run(done, c.clock.NewTicker(time.Second), onTick, onTimeout)
}

func (c *Clock) run(done chan struct{}, t clockwork.Ticker, onTick func(int), onTimeout func()) {
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-t.Chan():
			remaining, expired, ok := c.advance(done)
			if !ok {
				return
			}

			if expired {
				onTimeout()
				return
			}

			onTick(remaining)
		}
	}
}

// advance consumes one second of the countdown identified by done. ok is false when that
// countdown has been cancelled in the meantime.
func (c *Clock) advance(done chan struct{}) (remaining int, expired, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != done {
		return 0, false, false
	}

	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		close(c.done)
		c.done = nil
		return 0, true, true
	}

	return c.remaining, false, true
}

// Stop cancels the running countdown, if any. It is safe to call repeatedly.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stop()
}

func (c *Clock) stop() {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// Remaining returns the last reported number of seconds.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.remaining
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.done != nil
}
