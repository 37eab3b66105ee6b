// Package watcher reports media files appearing in a folder so they can be
// imported without an explicit request.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	}
	return fmt.Sprintf("EventType(%d)", int(e))
}

var ErrAlreadyWatching = errors.New("watcher already running")

const DefaultInterval = 2 * time.Second

type fileState struct {
	size    int64
	modTime time.Time

	// reported is false until the file has held still for one scan.
	reported bool
	changed  bool
}

type Option func(*PollWatcher)

// WithFilter restricts events to files for which keep returns true.
func WithFilter(keep func(path string) bool) Option {
	return func(w *PollWatcher) { w.filter = keep }
}

func WithInterval(d time.Duration) Option {
	return func(w *PollWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// PollWatcher scans one directory on an interval. A new or changed file is
// reported only once its size and modification time are unchanged between
// two scans, so files still being copied are not picked up half written.
// Files present when watching starts are reported on the first scan.
type PollWatcher struct {
	interval time.Duration
	filter   func(string) bool
	logger   *slog.Logger

	mu       sync.Mutex
	dir      string
	seen     map[string]*fileState
	callback func(path string, event EventType)
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPollWatcher(logger *slog.Logger, opts ...Option) *PollWatcher {
	w := &PollWatcher{
		interval: DefaultInterval,
		filter:   func(string) bool { return true },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *PollWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()
}

// Watch starts polling dir until ctx is cancelled or Stop is called.
func (w *PollWatcher) Watch(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", dir)
	}

	w.mu.Lock()
	if w.done != nil {
		w.mu.Unlock()
		return ErrAlreadyWatching
	}
	ctx, cancel := context.WithCancel(ctx)
	w.dir = dir
	w.seen = nil
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Info("watching folder", "interval", w.interval.String())
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			if err := w.Scan(); err != nil && w.logger != nil {
				w.logger.Warn("folder scan failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

func (w *PollWatcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Scan compares the directory against the previous scan and delivers the
// resulting events.
func (w *PollWatcher) Scan() error {
	w.mu.Lock()
	dir := w.dir
	w.mu.Unlock()
	if dir == "" {
		return errors.New("watcher has no directory")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	current := make(map[string]os.FileInfo, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !w.filter(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		current[path] = info
	}

	type event struct {
		path string
		typ  EventType
	}
	var events []event

	w.mu.Lock()
	first := w.seen == nil
	if first {
		w.seen = make(map[string]*fileState, len(current))
	}
	for path, info := range current {
		st, ok := w.seen[path]
		switch {
		case !ok:
			st = &fileState{size: info.Size(), modTime: info.ModTime()}
			w.seen[path] = st
			if first {
				st.reported = true
				events = append(events, event{path, EventCreate})
			}
		case st.size != info.Size() || !st.modTime.Equal(info.ModTime()):
			st.size, st.modTime = info.Size(), info.ModTime()
			if st.reported {
				st.reported = false
				st.changed = true
			}
		case !st.reported:
			st.reported = true
			typ := EventCreate
			if st.changed {
				typ = EventModify
			}
			st.changed = false
			events = append(events, event{path, typ})
		}
	}
	for path, st := range w.seen {
		if _, ok := current[path]; !ok {
			delete(w.seen, path)
			if st.reported || st.changed {
				events = append(events, event{path, EventDelete})
			}
		}
	}
	callback := w.callback
	w.mu.Unlock()

	slices.SortFunc(events, func(a, b event) int { return strings.Compare(a.path, b.path) })

	if callback == nil {
		return nil
	}
	for _, ev := range events {
		callback(ev.path, ev.typ)
	}
	return nil
}
