package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const defaultPingInterval = 15 * time.Second

// latestFrame holds at most one pending preview. The engine calls ShowFrame
// with its lock held, so a slow client must never block it; a newer frame
// simply replaces one that has not been sent yet.
type latestFrame struct {
	ch chan timeline.PreviewSource
}

func newLatestFrame() *latestFrame {
	return &latestFrame{ch: make(chan timeline.PreviewSource, 1)}
}

func (f *latestFrame) ShowFrame(src timeline.PreviewSource) {
	for {
		select {
		case f.ch <- src:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// framesHandler streams the preview as server-sent events, one "frame"
// event per emitted PreviewSource.
func framesHandler(cfg ServerConfig) http.HandlerFunc {
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		frames := newLatestFrame()
		unsubscribe := cfg.Timeline.Subscribe(frames)
		defer unsubscribe()

		ticker := time.NewTicker(ping)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case src := <-frames.ch:
				data, err := json.Marshal(src)
				if err != nil {
					cfg.Logger.Error("encode frame", "error", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: frame\ndata: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
