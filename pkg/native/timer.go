package native

import (
	"sync"
	"time"
)

// DefaultTimerInterval is the period of the wall-clock timers driving the
// system-timer sequencer, system-timed players and the pacing drivers.
const DefaultTimerInterval = 2 * time.Millisecond

// timer calls fn periodically from its own goroutine with the time elapsed
// since Start.
type timer struct {
	interval time.Duration
	fn       func(elapsed time.Duration)

	ticker  *time.Ticker
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu sync.Mutex
}

func newTimer(interval time.Duration, fn func(elapsed time.Duration)) *timer {
	if interval <= 0 {
		interval = DefaultTimerInterval
	}
	return &timer{interval: interval, fn: fn}
}

// Start starts the timer. It does nothing if the timer is running.
func (t *timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.ticker = time.NewTicker(t.interval)
	go t.run(time.Now(), t.ticker, t.stopCh, t.doneCh)
}

func (t *timer) run(start time.Time, ticker *time.Ticker, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			t.fn(now.Sub(start))
		}
	}
}

// Stop stops the timer and waits for the goroutine to exit. It must not be
// called from fn.
func (t *timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.ticker.Stop()
	close(t.stopCh)
	doneCh := t.doneCh
	t.mu.Unlock()

	<-doneCh
}

// IsRunning reports whether the timer is running.
func (t *timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
