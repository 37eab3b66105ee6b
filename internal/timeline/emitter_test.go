package timeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEmitter_Dedup(t *testing.T) {
	em := NewEmitter(1.0/60, nil)
	rec := &frameRecorder{}
	em.Subscribe(rec)

	frame := func(clipID string, at float64, playing bool) PreviewSource {
		if clipID == "" {
			return EmptySource{DurationSeconds: 1, PlayheadSeconds: at, TimelinePlaying: playing}
		}
		return TimelineSource{ClipID: clipID, PlayheadSeconds: at, TimelinePlaying: playing}
	}

	steps := []struct {
		name  string
		src   PreviewSource
		force bool
		want  bool
	}{
		{name: "first", src: frame("a", 1, true), want: true},
		{name: "same frame", src: frame("a", 1, true)},
		{name: "within granularity", src: frame("a", 1.01, true)},
		{name: "next tick", src: frame("a", 1.03, true), want: true},
		{name: "play state changed", src: frame("a", 1.03, false), want: true},
		{name: "clip changed", src: frame("b", 1.03, false), want: true},
		{name: "forced repeat", src: frame("b", 1.03, false), force: true, want: true},
		{name: "empty region", src: frame("", 1.03, false), want: true},
		{name: "empty repeat", src: frame("", 1.035, false)},
	}
	for _, s := range steps {
		before := rec.count()
		if got := em.Emit(s.src, s.force); got != s.want {
			t.Fatalf("%s: Emit = %v, want %v", s.name, got, s.want)
		}
		if sent := rec.count() > before; sent != s.want {
			t.Fatalf("%s: sink received = %v, want %v", s.name, sent, s.want)
		}
	}
}

func TestEmitter_UnsubscribeAndReset(t *testing.T) {
	em := NewEmitter(0, nil)
	rec := &frameRecorder{}
	unsubscribe := em.Subscribe(rec)

	src := EmptySource{PlayheadSeconds: 2}
	em.Emit(src, false)
	em.Reset()
	if !em.Emit(src, false) {
		t.Fatal("Emit after Reset was suppressed")
	}

	unsubscribe()
	em.Emit(src, true)
	if rec.count() != 2 {
		t.Fatalf("frames = %d, want 2", rec.count())
	}
}

func TestEmitter_SinkUnsubscribesDuringShowFrame(t *testing.T) {
	em := NewEmitter(0, nil)
	calls := 0
	var unsubscribe func()
	unsubscribe = em.Subscribe(FrameSinkFunc(func(PreviewSource) {
		calls++
		unsubscribe()
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		em.Emit(EmptySource{PlayheadSeconds: 1}, true)
		em.Emit(EmptySource{PlayheadSeconds: 2}, true)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit deadlocked when a sink unsubscribed itself")
	}
	if calls != 1 {
		t.Fatalf("sink called %d times, want 1", calls)
	}
}

func TestEmitter_RejectsNil(t *testing.T) {
	em := NewEmitter(0, nil)
	if em.Emit(nil, true) {
		t.Fatal("Emit(nil) reported success")
	}
}

func TestPreviewSource_JSON(t *testing.T) {
	tests := []struct {
		name string
		src  PreviewSource
		want []string
	}{
		{
			name: "timeline",
			src:  TimelineSource{ClipID: "c1", ObjectURL: "/media/x", DurationSeconds: 4, TimelineStartSeconds: 2},
			want: []string{`"sourceType":"timeline"`, `"clipId":"c1"`, `"objectUrl":"/media/x"`, `"timelineStartSeconds":2`},
		},
		{
			name: "empty",
			src:  EmptySource{DurationSeconds: 3, StartSeconds: 4, PlayheadSeconds: 5},
			want: []string{`"sourceType":"empty"`, `"startSeconds":4`, `"playheadSeconds":5`},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.src)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(string(b), w) {
					t.Fatalf("JSON %s missing %s", b, w)
				}
			}
		})
	}
}
