package timeline

import (
	"log/slog"
	"math"
	"sync"
)

// Drift thresholds, in seconds, beyond which a primitive is force-seeked back
// to the virtual clock. Playback tolerates more drift than scrubbing because
// constant correction stutters.
const (
	VideoDriftPlaying = 0.35
	VideoDriftPaused  = 0.04
	AudioDrift        = 0.15
)

// MediaElement is a native playback primitive with its own clock, such as
// an HTML video or audio element.
type MediaElement interface {
	// Load switches the source. The channel yields once the element can
	// seek: nil on success, an error if the media failed to load.
	Load(url string) <-chan error
	CurrentTime() float64
	SetCurrentTime(t float64)
	// Play starts playback. The channel yields the outcome of the request;
	// a rejection leaves the element paused.
	Play() <-chan error
	Pause()
	Paused() bool
	SetMuted(muted bool)
}

// PlaybackState is the virtual-clock view the synchronizer reconciles
// primitives against.
type PlaybackState struct {
	Time    float64
	Playing bool
	Video   *TrackClip
	Audio   *TrackClip
}

func (s PlaybackState) clipFor(kind MediaType) *TrackClip {
	if kind == MediaAudio {
		return s.Audio
	}
	return s.Video
}

type binding struct {
	clipID   string
	url      string
	gen      uint64
	ready    bool
	failed   bool
	rejected bool
}

type primitive struct {
	kind  MediaType
	el    MediaElement
	bound binding
	gen   uint64
}

// Synchronizer is the only component that commands the two media
// primitives. Reconcile must be called with lock held; asynchronous
// completions take lock themselves before touching state.
type Synchronizer struct {
	video  *primitive
	audio  *primitive
	lock   sync.Locker
	state  func() PlaybackState
	logger *slog.Logger
}

// NewSynchronizer binds the primitives. Either may be nil, in which case that
// lane is not reconciled.
func NewSynchronizer(video, audio MediaElement, lock sync.Locker, state func() PlaybackState, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		video:  &primitive{kind: MediaVideo, el: video},
		audio:  &primitive{kind: MediaAudio, el: audio},
		lock:   lock,
		state:  state,
		logger: logger,
	}
}

// Reconcile drives both primitives toward st.
func (s *Synchronizer) Reconcile(st PlaybackState) {
	s.reconcile(s.video, st)
	s.reconcile(s.audio, st)
}

// BoundClip reports which clip a lane's primitive is currently bound to.
func (s *Synchronizer) BoundClip(kind MediaType) string {
	if kind == MediaAudio {
		return s.audio.bound.clipID
	}
	return s.video.bound.clipID
}

func (s *Synchronizer) reconcile(p *primitive, st PlaybackState) {
	if p.el == nil {
		return
	}
	if !st.Playing {
		p.bound.rejected = false
	}

	clip := st.clipFor(p.kind)
	if clip == nil {
		if !p.el.Paused() {
			p.el.Pause()
		}
		if p.kind == MediaAudio {
			p.el.SetMuted(true)
		}
		return
	}
	if p.kind == MediaAudio {
		p.el.SetMuted(false)
	}

	if p.bound.clipID != clip.ID || p.bound.url != clip.ObjectURL {
		s.rebind(p, *clip)
		return
	}
	if !p.bound.ready || p.bound.failed {
		return
	}

	target := clip.SourceTimeAt(st.Time)
	pos := p.el.CurrentTime()
	if math.Abs(pos-target) > driftThreshold(p.kind, st.Playing) {
		p.el.SetCurrentTime(target)
		pos = target
	}

	if p.kind == MediaVideo && pos >= clip.SourceEndSeconds-epsilon {
		if !p.el.Paused() {
			p.el.Pause()
		}
		return
	}
	s.applyPlayState(p, st.Playing)
}

func (s *Synchronizer) applyPlayState(p *primitive, playing bool) {
	switch {
	case playing && p.el.Paused() && !p.bound.rejected:
		s.play(p)
	case !playing && !p.el.Paused():
		p.el.Pause()
	}
}

// rebind points the primitive at a new clip. The seek to the clip position
// happens once the element reports it is ready.
func (s *Synchronizer) rebind(p *primitive, clip TrackClip) {
	p.gen++
	gen := p.gen
	p.bound = binding{clipID: clip.ID, url: clip.ObjectURL, gen: gen}
	if !p.el.Paused() {
		p.el.Pause()
	}

	if s.logger != nil {
		s.logger.Debug("binding media source", "lane", p.kind, "clip_id", clip.ID)
	}

	ready := p.el.Load(clip.ObjectURL)
	if ready == nil {
		s.onReady(p, gen, nil)
		return
	}
	go func() {
		err := <-ready
		s.lock.Lock()
		defer s.lock.Unlock()
		s.onReady(p, gen, err)
	}()
}

func (s *Synchronizer) onReady(p *primitive, gen uint64, err error) {
	if p.bound.gen != gen {
		return
	}
	if err != nil {
		p.bound.failed = true
		if s.logger != nil {
			s.logger.Warn("media source failed to load", "lane", p.kind, "clip_id", p.bound.clipID, "error", err)
		}
		return
	}
	p.bound.ready = true

	st := s.state()
	clip := st.clipFor(p.kind)
	if clip == nil || clip.ID != p.bound.clipID {
		return
	}
	p.el.SetCurrentTime(clip.SourceTimeAt(st.Time))
	if st.Playing {
		s.play(p)
	}
}

func (s *Synchronizer) play(p *primitive) {
	result := p.el.Play()
	if result == nil {
		return
	}
	gen := p.bound.gen
	go func() {
		err := <-result
		if err == nil {
			return
		}
		s.lock.Lock()
		defer s.lock.Unlock()
		if p.bound.gen == gen {
			p.bound.rejected = true
		}
		if s.logger != nil {
			s.logger.Debug("media play rejected", "lane", p.kind, "error", err)
		}
	}()
}

func driftThreshold(kind MediaType, playing bool) float64 {
	if kind == MediaAudio {
		return AudioDrift
	}
	if playing {
		return VideoDriftPlaying
	}
	return VideoDriftPaused
}
