// Package player provides media primitives the timeline engine can drive
// outside a browser.
package player

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"
)

var (
	ErrNoSource        = errors.New("no media source")
	ErrAutoplayBlocked = errors.New("play request blocked until user interaction")
	ErrLoadAborted     = errors.New("load aborted by a newer source")
)

type Option func(*Virtual)

func WithClock(now func() time.Time) Option {
	return func(v *Virtual) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLoadLatency delays readiness after Load, the way a real element buffers.
func WithLoadLatency(d time.Duration) Option {
	return func(v *Virtual) { v.latency = d }
}

// WithAutoplayBlocked makes Play fail until Unlock is called.
func WithAutoplayBlocked() Option {
	return func(v *Virtual) { v.blocked = true }
}

// WithDurations tells the player how long each source runs so playback stops
// at the end of the media. Unknown sources play forever.
func WithDurations(durationOf func(url string) (float64, bool)) Option {
	return func(v *Virtual) { v.durationOf = durationOf }
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Virtual) { v.logger = logger }
}

// Virtual is an in-process media element. Its position advances with the
// wall clock while playing, independently of the timeline clock, so it
// drifts and gets corrected like a native element would.
type Virtual struct {
	name       string
	now        func() time.Time
	latency    time.Duration
	blocked    bool
	durationOf func(string) (float64, bool)
	logger     *slog.Logger

	mu       sync.Mutex
	url      string
	gen      uint64
	duration float64
	pos      float64
	anchorAt time.Time
	playing  bool
	muted    bool
}

func NewVirtual(name string, opts ...Option) *Virtual {
	v := &Virtual{
		name:     name,
		now:      time.Now,
		duration: math.Inf(1),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Virtual) Load(url string) <-chan error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.gen++
	v.url = url
	v.pos = 0
	v.playing = false
	v.duration = math.Inf(1)
	if url == "" {
		return failed(ErrNoSource)
	}
	if v.durationOf != nil {
		if d, ok := v.durationOf(url); ok {
			v.duration = d
		}
	}
	if v.logger != nil {
		v.logger.Debug("player source loaded", "player", v.name, "url", url)
	}
	if v.latency <= 0 {
		return nil
	}

	ch := make(chan error, 1)
	gen := v.gen
	time.AfterFunc(v.latency, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if gen != v.gen {
			ch <- ErrLoadAborted
			return
		}
		ch <- nil
	})
	return ch
}

func (v *Virtual) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.positionLocked()
}

func (v *Virtual) SetCurrentTime(t float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pos = math.Max(0, math.Min(t, v.duration))
	v.anchorAt = v.now()
}

func (v *Virtual) Play() <-chan error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.url == "" {
		return failed(ErrNoSource)
	}
	if v.blocked {
		return failed(ErrAutoplayBlocked)
	}
	if !v.playing {
		v.playing = true
		v.anchorAt = v.now()
	}
	return nil
}

func (v *Virtual) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pos = v.positionLocked()
	v.playing = false
}

func (v *Virtual) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.positionLocked()
	return !v.playing
}

func (v *Virtual) SetMuted(muted bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.muted = muted
}

func (v *Virtual) Muted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.muted
}

func (v *Virtual) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.url
}

// Unlock lifts the autoplay block, as a user gesture would.
func (v *Virtual) Unlock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.blocked = false
}

// positionLocked folds elapsed play time into pos and stops at the end of
// the media.
func (v *Virtual) positionLocked() float64 {
	if !v.playing {
		return v.pos
	}
	now := v.now()
	v.pos += now.Sub(v.anchorAt).Seconds()
	v.anchorAt = now
	if v.pos >= v.duration {
		v.pos = v.duration
		v.playing = false
	}
	return v.pos
}

func failed(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}
