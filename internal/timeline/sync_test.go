package timeline

import (
	"errors"
	"sync"
	"testing"
)

type syncHarness struct {
	mu    sync.Mutex
	st    PlaybackState
	video *fakeElement
	audio *fakeElement
	s     *Synchronizer
}

func newSyncHarness() *syncHarness {
	h := &syncHarness{video: newFakeElement(), audio: newFakeElement()}
	h.s = NewSynchronizer(h.video, h.audio, &h.mu, func() PlaybackState { return h.st }, nil)
	return h
}

func (h *syncHarness) reconcile(st PlaybackState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.st = st
	h.s.Reconcile(st)
}

func syncClip(id string, media MediaType) *TrackClip {
	c := TrackClip{
		ID:                   id,
		MediaType:            media,
		MediaDurationSeconds: 20,
		StartSeconds:         2,
		ObjectURL:            "blob:" + id,
	}
	c.setSourceWindow(1, 11)
	return &c
}

func TestSync_BindsAndSeeksOnNewClip(t *testing.T) {
	h := newSyncHarness()
	v := syncClip("v", MediaVideo)

	h.reconcile(PlaybackState{Time: 4, Playing: true, Video: v})

	if h.video.url != "blob:v" {
		t.Fatalf("video url = %q", h.video.url)
	}
	if got := h.video.CurrentTime(); got != 3 {
		t.Fatalf("video position = %v, want 3", got)
	}
	if h.video.Paused() {
		t.Fatal("video not resumed after binding")
	}
	if !h.audio.Paused() || !h.audio.muted {
		t.Fatal("audio without a clip should be paused and muted")
	}
}

func TestSync_DriftThresholds(t *testing.T) {
	tests := []struct {
		name     string
		media    MediaType
		playing  bool
		drift    float64
		wantSeek bool
	}{
		{name: "video playing small drift", media: MediaVideo, playing: true, drift: 0.3},
		{name: "video playing large drift", media: MediaVideo, playing: true, drift: 0.4, wantSeek: true},
		{name: "video paused small drift", media: MediaVideo, drift: 0.03},
		{name: "video paused scrub drift", media: MediaVideo, drift: 0.05, wantSeek: true},
		{name: "audio playing small drift", media: MediaAudio, playing: true, drift: 0.14},
		{name: "audio playing large drift", media: MediaAudio, playing: true, drift: 0.16, wantSeek: true},
		{name: "audio paused small drift", media: MediaAudio, drift: 0.14},
		{name: "audio paused large drift", media: MediaAudio, drift: 0.16, wantSeek: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newSyncHarness()
			clip := syncClip("c", tc.media)
			st := PlaybackState{Time: 5, Playing: tc.playing}
			el := h.video
			if tc.media == MediaAudio {
				st.Audio = clip
				el = h.audio
			} else {
				st.Video = clip
			}

			h.reconcile(st)
			el.setTime(4 + tc.drift)
			seeks := el.seekCount()
			h.reconcile(st)

			gotSeek := el.seekCount() > seeks
			if gotSeek != tc.wantSeek {
				t.Fatalf("resync = %v, want %v", gotSeek, tc.wantSeek)
			}
			if tc.wantSeek && el.CurrentTime() != 4 {
				t.Fatalf("resynced to %v, want 4", el.CurrentTime())
			}
		})
	}
}

func TestSync_VideoPausesAtSourceEnd(t *testing.T) {
	h := newSyncHarness()
	v := syncClip("v", MediaVideo)

	h.reconcile(PlaybackState{Time: 4, Playing: true, Video: v})
	h.video.setTime(11)
	h.reconcile(PlaybackState{Time: 11.9, Playing: true, Video: v})

	if !h.video.Paused() {
		t.Fatal("video kept playing past its out-point")
	}
	if h.video.CurrentTime() != 11 {
		t.Fatalf("video position = %v, want held at 11", h.video.CurrentTime())
	}
}

func TestSync_PausesWhenTimelinePauses(t *testing.T) {
	h := newSyncHarness()
	v := syncClip("v", MediaVideo)
	a := syncClip("a", MediaAudio)

	h.reconcile(PlaybackState{Time: 4, Playing: true, Video: v, Audio: a})
	h.reconcile(PlaybackState{Time: 4, Video: v, Audio: a})

	if !h.video.Paused() || !h.audio.Paused() {
		t.Fatal("primitives still playing while timeline paused")
	}
	if h.audio.muted {
		t.Fatal("audio muted while its clip is active")
	}
}

func TestSync_WaitsForAsyncLoad(t *testing.T) {
	h := newSyncHarness()
	h.video.async = true
	v := syncClip("v", MediaVideo)

	h.reconcile(PlaybackState{Time: 6, Playing: true, Video: v})
	if h.video.seekCount() != 0 || h.video.playCount() != 0 {
		t.Fatal("seeked or played before the source was ready")
	}
	h.reconcile(PlaybackState{Time: 6.5, Playing: true, Video: v})
	if len(h.video.loads) != 1 {
		t.Fatalf("loads = %d, want 1", len(h.video.loads))
	}

	h.video.complete(0, nil)
	waitFor(t, "play after ready", func() bool { return h.video.playCount() == 1 })

	if got := h.video.CurrentTime(); got != 5.5 {
		t.Fatalf("seeked to %v, want 5.5", got)
	}
	if got := h.video.seekCount(); got != 1 {
		t.Fatalf("seeks = %d, want 1", got)
	}
}

func TestSync_IgnoresStaleLoad(t *testing.T) {
	h := newSyncHarness()
	h.video.async = true
	first := syncClip("first", MediaVideo)
	second := syncClip("second", MediaVideo)

	h.reconcile(PlaybackState{Time: 4, Video: first})
	h.reconcile(PlaybackState{Time: 4, Video: second})

	h.video.complete(0, nil)
	h.video.complete(1, nil)
	waitFor(t, "second binding ready", func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.s.video.bound.ready
	})

	if got := h.video.seekCount(); got != 1 {
		t.Fatalf("seeks = %d, want only the current binding to seek", got)
	}
	if h.s.BoundClip(MediaVideo) != "second" {
		t.Fatalf("bound clip = %q", h.s.BoundClip(MediaVideo))
	}
}

func TestSync_LoadFailureStaysPaused(t *testing.T) {
	h := newSyncHarness()
	h.video.async = true
	v := syncClip("v", MediaVideo)

	h.reconcile(PlaybackState{Time: 4, Playing: true, Video: v})
	h.video.complete(0, errors.New("decode error"))
	waitFor(t, "failure recorded", func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.s.video.bound.failed
	})

	h.reconcile(PlaybackState{Time: 4.5, Playing: true, Video: v})
	if !h.video.Paused() || h.video.playCount() != 0 {
		t.Fatal("failed source was played")
	}
}

func TestSync_PlayRejectionIsNotRetried(t *testing.T) {
	h := newSyncHarness()
	h.video.rejectPlay = true
	v := syncClip("v", MediaVideo)

	h.reconcile(PlaybackState{Time: 4, Playing: true, Video: v})
	waitFor(t, "rejection recorded", func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.s.video.bound.rejected
	})

	h.reconcile(PlaybackState{Time: 4.1, Playing: true, Video: v})
	if got := h.video.playCount(); got != 1 {
		t.Fatalf("plays = %d, want no retry", got)
	}

	h.video.rejectPlay = false
	h.reconcile(PlaybackState{Time: 4.1, Video: v})
	h.reconcile(PlaybackState{Time: 4.1, Playing: true, Video: v})
	if got := h.video.playCount(); got != 2 {
		t.Fatalf("plays = %d, want retry after a pause", got)
	}
	if h.video.Paused() {
		t.Fatal("video paused after accepted play")
	}
}
