package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNoHandle is returned by a Resolver for a handle that is unknown or has
// been released.
var ErrNoHandle = errors.New("media handle not found")

// Source is the file behind a media handle.
type Source struct {
	Path        string
	ContentType string
}

// Resolver maps a media handle to its file.
type Resolver interface {
	ResolveMedia(ctx context.Context, handle string) (Source, error)
}

type ResolverFunc func(ctx context.Context, handle string) (Source, error)

func (f ResolverFunc) ResolveMedia(ctx context.Context, handle string) (Source, error) {
	return f(ctx, handle)
}

// Server streams media handles to the preview surface with byte-range
// support, which media elements need to seek.
type Server struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewServer(resolver Resolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{resolver: resolver, logger: logger}
}

// ServeHandle writes the media behind handle. Response errors are written to
// w; the returned error is only for failures after headers were chosen.
func (s *Server) ServeHandle(w http.ResponseWriter, r *http.Request, handle string) error {
	src, err := s.resolver.ResolveMedia(r.Context(), handle)
	if err != nil {
		if errors.Is(err, ErrNoHandle) {
			http.Error(w, "media handle not found", http.StatusNotFound)
			return nil
		}
		http.Error(w, "failed to resolve media handle", http.StatusInternalServerError)
		return fmt.Errorf("resolve handle %s: %w", handle, err)
	}
	return s.ServeFile(w, r, src)
}

func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, src Source) error {
	file, err := os.Open(src.Path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "media file not found", http.StatusNotFound)
			return nil
		}
		http.Error(w, "failed to open media", http.StatusInternalServerError)
		return fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "failed to stat media", http.StatusInternalServerError)
		return fmt.Errorf("stat media: %w", err)
	}
	size := stat.Size()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", contentType(src))
	h.Set("Last-Modified", stat.ModTime().UTC().Format(http.TimeFormat))

	header := r.Header.Get("Range")
	if !ifRangeMatches(r.Header.Get("If-Range"), stat.ModTime()) {
		header = ""
	}
	br, ok, err := ParseRange(header, size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		s.logger.Debug("ignoring malformed range", "range", header)
		ok = false
	}

	if !ok {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		_, err := io.Copy(w, file)
		return ignoreDisconnect(err)
	}

	h.Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	h.Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := file.Seek(br.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek media: %w", err)
	}
	_, err = io.CopyN(w, file, br.Length())
	return ignoreDisconnect(err)
}

func contentType(src Source) string {
	if src.ContentType != "" {
		return src.ContentType
	}
	if ct := mime.TypeByExtension(filepath.Ext(src.Path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ifRangeMatches reports whether a conditional range still applies. Only the
// date form is supported since handles carry no entity tag.
func ifRangeMatches(ifRange string, modTime time.Time) bool {
	if ifRange == "" {
		return true
	}
	if strings.HasPrefix(ifRange, `"`) || strings.HasPrefix(ifRange, "W/") {
		return false
	}
	t, err := http.ParseTime(ifRange)
	if err != nil {
		return false
	}
	return !modTime.Truncate(time.Second).After(t)
}

// Seeking media elements routinely abandon requests mid-body.
func ignoreDisconnect(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	if strings.Contains(err.Error(), "broken pipe") || strings.Contains(err.Error(), "connection reset") {
		return nil
	}
	return err
}
