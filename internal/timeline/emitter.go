package timeline

import (
	"log/slog"
	"math"
	"sync"
)

// FrameSink receives preview updates. ShowFrame is called with the engine
// locked and must not call back into the engine. It may unsubscribe itself.
type FrameSink interface {
	ShowFrame(src PreviewSource)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(src PreviewSource)

func (f FrameSinkFunc) ShowFrame(src PreviewSource) { f(src) }

// Emitter forwards preview sources to its sinks, dropping repeats of the last
// emission unless forced.
type Emitter struct {
	granularity float64
	logger      *slog.Logger

	mu     sync.Mutex
	sinks  map[int]FrameSink
	nextID int
	last   *frameKey
}

type frameKey struct {
	clipID  string
	playing bool
	time    float64
}

func NewEmitter(granularity float64, logger *slog.Logger) *Emitter {
	if granularity <= 0 {
		granularity = DefaultTickInterval.Seconds()
	}
	return &Emitter{
		granularity: granularity,
		logger:      logger,
		sinks:       make(map[int]FrameSink),
	}
}

// Subscribe registers a sink and returns a function that removes it.
func (e *Emitter) Subscribe(sink FrameSink) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.sinks[id] = sink
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.sinks, id)
	}
}

// Emit sends src to every sink and reports whether it was sent.
func (e *Emitter) Emit(src PreviewSource, force bool) bool {
	key, ok := keyOf(src)
	if !ok {
		if e.logger != nil {
			e.logger.Error("unknown preview source type", "type", src)
		}
		return false
	}

	e.mu.Lock()
	if !force && e.last != nil && e.same(*e.last, key) {
		e.mu.Unlock()
		return false
	}
	e.last = &key
	sinks := make([]FrameSink, 0, len(e.sinks))
	for _, sink := range e.sinks {
		sinks = append(sinks, sink)
	}
	e.mu.Unlock()

	for _, sink := range sinks {
		sink.ShowFrame(src)
	}
	return true
}

// Reset forgets the last emission so the next Emit always goes through.
func (e *Emitter) Reset() {
	e.mu.Lock()
	e.last = nil
	e.mu.Unlock()
}

func (e *Emitter) same(a, b frameKey) bool {
	return a.clipID == b.clipID && a.playing == b.playing && math.Abs(a.time-b.time) < e.granularity
}

func keyOf(src PreviewSource) (frameKey, bool) {
	switch s := src.(type) {
	case TimelineSource:
		return frameKey{clipID: s.ClipID, playing: s.TimelinePlaying, time: s.PlayheadSeconds}, true
	case EmptySource:
		return frameKey{playing: s.TimelinePlaying, time: s.PlayheadSeconds}, true
	default:
		return frameKey{}, false
	}
}
