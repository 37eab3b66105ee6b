package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type fakeProber struct {
	durations map[string]float64
}

func (f *fakeProber) Probe(_ context.Context, path string) (*library.ProbeResult, error) {
	d, ok := f.durations[filepath.Base(path)]
	if !ok {
		return nil, errors.New("decode failed")
	}
	return &library.ProbeResult{DurationSeconds: d, HasVideo: true, HasAudio: true}, nil
}

type testEnv struct {
	cfg      ServerConfig
	router   http.Handler
	engine   *timeline.Engine
	lib      *library.Library
	mediaDir string
}

func newTestEnv(t *testing.T, durations map[string]float64) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.New(db.MemoryDSN, logger)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	lib := library.New(library.NewRepository(database.Conn()), &fakeProber{durations: durations}, logger)
	engine := timeline.NewEngine(timeline.Config{
		Scheduler: timeline.NewTickerScheduler(time.Hour),
		Assets:    lib,
		Logger:    logger,
	})
	t.Cleanup(engine.Close)

	cfg := ServerConfig{
		Version:      "test",
		Timeline:     engine,
		Library:      lib,
		MediaServer:  media.NewServer(lib, logger),
		Exporter:     export.NewExporter(filepath.Join(t.TempDir(), "exports"), logger),
		Logger:       logger,
		StartTime:    time.Now(),
		PingInterval: time.Hour,
	}
	return &testEnv{cfg: cfg, router: NewRouter(cfg), engine: engine, lib: lib, mediaDir: t.TempDir()}
}

func (env *testEnv) writeMedia(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(env.mediaDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func (env *testEnv) importAsset(t *testing.T, name string) *library.Asset {
	t.Helper()
	res, err := env.lib.Import(context.Background(), env.writeMedia(t, name, "media:"+name))
	if err != nil {
		t.Fatalf("Import(%s) error = %v", name, err)
	}
	return res.Asset
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal error: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "127.0.0.1:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) command(t *testing.T, cmd timeline.Command) timeline.Snapshot {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/timeline/commands", cmd)
	if rr.Code != http.StatusOK {
		t.Fatalf("command %s status = %d, body = %s", cmd.Op, rr.Code, rr.Body.String())
	}
	var snap timeline.Snapshot
	decodeInto(t, rr, &snap)
	return snap
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rr.Body.String())
	}
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	decodeInto(t, rr, &body)
	return body
}
