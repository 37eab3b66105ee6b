package timeline

import (
	"sync"
	"time"
)

// DefaultTickInterval approximates one display refresh.
const DefaultTickInterval = time.Second / 60

// Scheduler drives the per-frame tick while the timeline is playing. The
// callback returns false to stop the schedule; Stop cancels it from outside.
type Scheduler interface {
	Start(tick func() bool)
	Stop()
}

// TickerScheduler runs the tick callback on a time.Ticker goroutine.
type TickerScheduler struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &TickerScheduler{interval: interval}
}

// Start begins ticking. A second Start while running is a no-op.
func (s *TickerScheduler) Start(tick func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	stop := make(chan struct{})
	s.stop = stop

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !tick() {
					s.clear(stop)
					return
				}
			}
		}
	}()
}

// Stop cancels the schedule. It does not wait for an in-flight tick, since
// ticks re-enter the engine and Stop is called with the engine locked.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

// Running reports whether a schedule is active.
func (s *TickerScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// clear forgets a schedule that ended on its own, unless a newer one has
// already replaced it.
func (s *TickerScheduler) clear(stop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == stop {
		s.stop = nil
	}
}
