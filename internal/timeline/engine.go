package timeline

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultPixelsPerSecond is the zoom level used when Config leaves it unset.
const DefaultPixelsPerSecond = 40

// Config wires an Engine to its collaborators. Zero values fall back to
// defaults: wall clock, a TickerScheduler and no media primitives.
type Config struct {
	PixelsPerSecond float64
	TickInterval    time.Duration
	Now             func() time.Time
	Scheduler       Scheduler
	Video           MediaElement
	Audio           MediaElement
	Assets          AssetSource
	Logger          *slog.Logger
	NewID           func() string
}

// Engine owns the tracks, the virtual clock and all transient gesture state.
// Every exported method is one complete operation, serialised on mu.
type Engine struct {
	mu sync.Mutex

	store     *Store
	clock     *Clock
	scheduler Scheduler
	sync      *Synchronizer
	emitter   *Emitter
	assets    AssetSource
	logger    *slog.Logger
	newID     func() string

	pixelsPerSecond float64
	viewportSeconds float64

	selectedID string
	drag       *dragState
	trim       *trimState
	closed     bool
}

func NewEngine(cfg Config) *Engine {
	if cfg.PixelsPerSecond <= 0 {
		cfg.PixelsPerSecond = DefaultPixelsPerSecond
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewTickerScheduler(cfg.TickInterval)
	}
	if cfg.NewID == nil {
		cfg.NewID = newClipID
	}

	e := &Engine{
		store:           NewStore(),
		clock:           NewClock(cfg.Now),
		scheduler:       cfg.Scheduler,
		emitter:         NewEmitter(cfg.TickInterval.Seconds(), cfg.Logger),
		assets:          cfg.Assets,
		logger:          cfg.Logger,
		newID:           cfg.NewID,
		pixelsPerSecond: cfg.PixelsPerSecond,
	}
	e.sync = NewSynchronizer(cfg.Video, cfg.Audio, &e.mu, e.playbackStateLocked, cfg.Logger)
	return e
}

// Snapshot is a consistent read of the engine state.
type Snapshot struct {
	Video                []TrackClip `json:"video"`
	Audio                []TrackClip `json:"audio"`
	CurrentSeconds       float64     `json:"current_seconds"`
	Playing              bool        `json:"playing"`
	TrackDurationSeconds float64     `json:"track_duration_seconds"`
	PixelsPerSecond      float64     `json:"pixels_per_second"`
	SelectedClipID       string      `json:"selected_clip_id,omitempty"`
	DraggingClipID       string      `json:"dragging_clip_id,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		Video:                e.previewClipsLocked(MediaVideo),
		Audio:                e.previewClipsLocked(MediaAudio),
		CurrentSeconds:       e.clock.Current(),
		Playing:              e.clock.Playing(),
		TrackDurationSeconds: e.trackDurationLocked(),
		PixelsPerSecond:      e.pixelsPerSecond,
		SelectedClipID:       e.selectedID,
	}
	if e.drag != nil {
		s.DraggingClipID = e.drag.clip.ID
	}
	return s
}

// Tracks returns the committed clips of both tracks.
func (e *Engine) Tracks() (video, audio []TrackClip) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Clips(MediaVideo), e.store.Clips(MediaAudio)
}

// Preview computes what the preview surface should show right now.
func (e *Engine) Preview() PreviewSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previewLocked()
}

// Subscribe registers a frame sink. The current preview is pushed to every
// sink straight away so a new subscriber never starts blank.
func (e *Engine) Subscribe(sink FrameSink) func() {
	unsubscribe := e.emitter.Subscribe(sink)
	e.mu.Lock()
	e.emitter.Emit(e.previewLocked(), true)
	e.mu.Unlock()
	return unsubscribe
}

func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Current()
}

func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Playing()
}

// Play starts the clock and the per-frame schedule. Playing from the very end
// of the track restarts from zero.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playLocked()
}

func (e *Engine) playLocked() {
	if e.closed || e.clock.Playing() {
		return
	}
	d := e.trackDurationLocked()
	if e.clock.Current() >= d {
		e.clock.Seek(0, d)
	}
	e.clock.Play()
	e.scheduler.Start(e.tick)
	e.reconcileLocked(true)
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseLocked()
}

func (e *Engine) pauseLocked() {
	if !e.clock.Playing() {
		return
	}
	e.clock.Pause()
	e.scheduler.Stop()
	e.reconcileLocked(true)
}

// TogglePlay flips between playing and paused and returns the new state.
func (e *Engine) TogglePlay() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock.Playing() {
		e.pauseLocked()
	} else {
		e.playLocked()
	}
	return e.clock.Playing()
}

// Seek moves the playhead to t, clamped to the track, and returns the
// resulting position.
func (e *Engine) Seek(t float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seekLocked(t)
}

// SeekBy moves the playhead relative to its current position.
func (e *Engine) SeekBy(deltaSeconds float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seekLocked(e.clock.Current() + deltaSeconds)
}

func (e *Engine) seekLocked(t float64) float64 {
	t = e.clock.Seek(t, e.trackDurationLocked())
	e.reconcileLocked(true)
	return t
}

// SetViewport records the visible lane width so the track is never shorter
// than what is on screen.
func (e *Engine) SetViewport(widthPixels float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewportSeconds = max(0, widthPixels/e.pixelsPerSecond)
}

// Close stops the schedule and pauses both primitives. The engine ignores
// Play afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.clock.Pause()
	e.scheduler.Stop()
	e.sync.Reconcile(PlaybackState{Time: e.clock.Current()})
}

// tick is the scheduler callback. It returns false once the clock stops.
func (e *Engine) tick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.clock.Playing() {
		return false
	}
	_, ended := e.clock.Tick(e.trackDurationLocked())
	e.reconcileLocked(ended)
	if ended && e.logger != nil {
		e.logger.Debug("playback reached end of track", "seconds", e.clock.Current())
	}
	return !ended
}

func (e *Engine) trackDurationLocked() float64 {
	return TrackDuration(e.viewportSeconds, e.store.FurthestEnd())
}

func (e *Engine) previewLocked() PreviewSource {
	return previewAt(e.store.video, e.clock.Current(), e.trackDurationLocked(), e.clock.Playing())
}

func (e *Engine) playbackStateLocked() PlaybackState {
	t := e.clock.Current()
	st := PlaybackState{Time: t, Playing: e.clock.Playing()}
	if c, ok := e.store.ActiveAt(MediaVideo, t); ok {
		st.Video = &c
	}
	if c, ok := e.store.ActiveAt(MediaAudio, t); ok {
		st.Audio = &c
	}
	return st
}

// reconcileLocked brings the media primitives and the preview surface in
// line with the clock. Edits, seeks and drops force the emission.
func (e *Engine) reconcileLocked(force bool) {
	e.sync.Reconcile(e.playbackStateLocked())
	e.emitter.Emit(e.previewLocked(), force)
}
