package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const payload = "0123456789abcdefghij"

func setupServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	resolver := ResolverFunc(func(_ context.Context, handle string) (Source, error) {
		switch handle {
		case "h1":
			return Source{Path: path, ContentType: "video/mp4"}, nil
		case "gone":
			return Source{Path: filepath.Join(filepath.Dir(path), "missing.mp4")}, nil
		case "broken":
			return Source{}, errors.New("database is locked")
		}
		return Source{}, ErrNoHandle
	})
	return NewServer(resolver, nil), path
}

func serve(t *testing.T, s *Server, method, handle string, headers map[string]string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(method, "/media/"+handle, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	err := s.ServeHandle(rec, req, handle)
	return rec, err
}

func TestServeHandle(t *testing.T) {
	s, _ := setupServer(t)

	tests := []struct {
		name        string
		method      string
		handle      string
		rangeHeader string
		wantStatus  int
		wantBody    string
		wantRange   string
	}{
		{"whole file", http.MethodGet, "h1", "", http.StatusOK, payload, ""},
		{"byte range", http.MethodGet, "h1", "bytes=2-5", http.StatusPartialContent, "2345", "bytes 2-5/20"},
		{"suffix range", http.MethodGet, "h1", "bytes=-3", http.StatusPartialContent, "hij", "bytes 17-19/20"},
		{"malformed range serves all", http.MethodGet, "h1", "frames=1-2", http.StatusOK, payload, ""},
		{"unsatisfiable", http.MethodGet, "h1", "bytes=40-", http.StatusRequestedRangeNotSatisfiable, "", "bytes */20"},
		{"head", http.MethodHead, "h1", "bytes=0-9", http.StatusPartialContent, "", "bytes 0-9/20"},
		{"unknown handle", http.MethodGet, "nope", "", http.StatusNotFound, "", ""},
		{"file removed", http.MethodGet, "gone", "", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.rangeHeader != "" {
				headers["Range"] = tt.rangeHeader
			}
			rec, err := serve(t, s, tt.method, tt.handle, headers)
			if err != nil {
				t.Fatalf("ServeHandle() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Errorf("HEAD wrote %d body bytes", rec.Body.Len())
			}
		})
	}
}

func TestServeHandle_Headers(t *testing.T) {
	s, _ := setupServer(t)
	rec, err := serve(t, s, http.MethodGet, "h1", map[string]string{"Range": "bytes=0-3"})
	if err != nil {
		t.Fatalf("ServeHandle() error = %v", err)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q, want 4", got)
	}
}

func TestServeHandle_IfRange(t *testing.T) {
	s, path := setupServer(t)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	fresh := info.ModTime().Add(time.Hour).UTC().Format(http.TimeFormat)
	stale := info.ModTime().Add(-time.Hour).UTC().Format(http.TimeFormat)

	tests := []struct {
		name       string
		ifRange    string
		wantStatus int
	}{
		{"unchanged since", fresh, http.StatusPartialContent},
		{"changed since", stale, http.StatusOK},
		{"etag form", `"abc"`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := serve(t, s, http.MethodGet, "h1", map[string]string{"Range": "bytes=0-3", "If-Range": tt.ifRange})
			if err != nil {
				t.Fatalf("ServeHandle() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestServeHandle_ResolverFailure(t *testing.T) {
	s, _ := setupServer(t)
	rec, err := serve(t, s, http.MethodGet, "broken", nil)
	if err == nil {
		t.Fatal("ServeHandle() error = nil, want resolver error")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestContentTypeFallback(t *testing.T) {
	if got := contentType(Source{Path: "x.unknownext"}); got != "application/octet-stream" {
		t.Errorf("contentType() = %q", got)
	}
	if got := contentType(Source{Path: "x.mp4", ContentType: "video/custom"}); got != "video/custom" {
		t.Errorf("contentType() = %q, want explicit type", got)
	}
}
