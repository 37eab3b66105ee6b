package timeline

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type manualScheduler struct {
	mu     sync.Mutex
	tick   func() bool
	starts int
	stops  int
}

func (m *manualScheduler) Start(tick func() bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tick != nil {
		return
	}
	m.tick = tick
	m.starts++
}

func (m *manualScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = nil
	m.stops++
}

func (m *manualScheduler) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick != nil
}

// fire runs one tick the way a real scheduler would, outside any lock.
func (m *manualScheduler) fire() bool {
	m.mu.Lock()
	tick := m.tick
	m.mu.Unlock()
	if tick == nil {
		return false
	}
	if tick() {
		return true
	}
	m.mu.Lock()
	m.tick = nil
	m.mu.Unlock()
	return false
}

// fakeElement records every command issued to a media primitive. By default
// loads and plays complete synchronously; async makes Load hand back a
// channel the test completes itself.
type fakeElement struct {
	mu         sync.Mutex
	async      bool
	rejectPlay bool

	url    string
	time   float64
	paused bool
	muted  bool

	pending []chan error
	loads   []string
	seeks   []float64
	plays   int
	pauses  int
}

func newFakeElement() *fakeElement {
	return &fakeElement{paused: true}
}

func (f *fakeElement) Load(url string) <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	f.time = 0
	f.loads = append(f.loads, url)
	if !f.async {
		return nil
	}
	ch := make(chan error, 1)
	f.pending = append(f.pending, ch)
	return ch
}

func (f *fakeElement) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time
}

func (f *fakeElement) SetCurrentTime(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.time = t
	f.seeks = append(f.seeks, t)
}

func (f *fakeElement) Play() <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	if f.rejectPlay {
		ch := make(chan error, 1)
		ch <- errors.New("autoplay blocked")
		return ch
	}
	f.paused = false
	return nil
}

func (f *fakeElement) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
	f.pauses++
}

func (f *fakeElement) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeElement) SetMuted(muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
}

func (f *fakeElement) setTime(t float64) {
	f.mu.Lock()
	f.time = t
	f.mu.Unlock()
}

func (f *fakeElement) seekCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seeks)
}

func (f *fakeElement) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

func (f *fakeElement) complete(i int, err error) {
	f.mu.Lock()
	ch := f.pending[i]
	f.mu.Unlock()
	ch <- err
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []PreviewSource
}

func (r *frameRecorder) ShowFrame(src PreviewSource) {
	r.mu.Lock()
	r.frames = append(r.frames, src)
	r.mu.Unlock()
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *frameRecorder) last() PreviewSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

type testEngine struct {
	*Engine
	sched *manualScheduler
	clock *fakeClock
	video *fakeElement
	audio *fakeElement
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	te := &testEngine{
		sched: &manualScheduler{},
		clock: newFakeClock(),
		video: newFakeElement(),
		audio: newFakeElement(),
	}
	n := 0
	te.Engine = NewEngine(Config{
		PixelsPerSecond: 40,
		Now:             te.clock.Now,
		Scheduler:       te.sched,
		Video:           te.video,
		Audio:           te.audio,
		NewID: func() string {
			n++
			return fmt.Sprintf("clip-%d", n)
		},
	})
	t.Cleanup(te.Close)
	return te
}

func testAsset(id string, duration float64) DragAsset {
	return DragAsset{
		ID:              id,
		Title:           id,
		DurationSeconds: duration,
		ObjectURL:       "blob:" + id,
	}
}

type clipPlacer interface {
	PlaceAsset(asset DragAsset, lane MediaType, start float64) (TrackClip, error)
}

func placeClip(t *testing.T, e clipPlacer, asset DragAsset, lane MediaType, start float64) TrackClip {
	t.Helper()
	clip, err := e.PlaceAsset(asset, lane, start)
	if err != nil {
		t.Fatalf("PlaceAsset(%s) error: %v", asset.ID, err)
	}
	return clip
}

func assertTrackInvariants(t *testing.T, clips []TrackClip) {
	t.Helper()
	for _, c := range clips {
		if math.Abs(c.DurationSeconds-(c.SourceEndSeconds-c.SourceStartSeconds)) > 1e-9 {
			t.Errorf("clip %s duration %v != source window %v..%v", c.ID, c.DurationSeconds, c.SourceStartSeconds, c.SourceEndSeconds)
		}
		if c.DurationSeconds < MinClipDuration-1e-9 {
			t.Errorf("clip %s duration %v below floor", c.ID, c.DurationSeconds)
		}
		if c.SourceStartSeconds < 0 || c.SourceEndSeconds > c.MediaDurationSeconds+1e-9 {
			t.Errorf("clip %s source window %v..%v outside media 0..%v", c.ID, c.SourceStartSeconds, c.SourceEndSeconds, c.MediaDurationSeconds)
		}
		if c.StartSeconds < 0 {
			t.Errorf("clip %s starts before zero: %v", c.ID, c.StartSeconds)
		}
	}
	for i := range clips {
		for j := i + 1; j < len(clips); j++ {
			if clips[i].Overlaps(clips[j]) {
				t.Errorf("clips %s [%v,%v) and %s [%v,%v) overlap",
					clips[i].ID, clips[i].StartSeconds, clips[i].EndSeconds(),
					clips[j].ID, clips[j].StartSeconds, clips[j].EndSeconds())
			}
		}
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// sourceTotal sums the source seconds a track plays.
func sourceTotal(clips []TrackClip) float64 {
	var total float64
	for _, c := range clips {
		total += c.SourceEndSeconds - c.SourceStartSeconds
	}
	return total
}
