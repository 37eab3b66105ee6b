package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Timeline is the engine surface the API drives.
type Timeline interface {
	Snapshot() timeline.Snapshot
	Preview() timeline.PreviewSource
	Tracks() (video, audio []timeline.TrackClip)
	Subscribe(sink timeline.FrameSink) func()
	Dispatch(ctx context.Context, cmd timeline.Command) (timeline.Snapshot, error)
}

type AssetLibrary interface {
	List(ctx context.Context) ([]*library.Asset, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (*library.Asset, error)
	ImportAll(ctx context.Context, paths []string) ([]library.ImportResult, error)
	Remove(ctx context.Context, id string) error
}

type MediaServer interface {
	ServeHandle(w http.ResponseWriter, r *http.Request, handle string) error
}

// Doctor reports the decode capabilities shown on /health.
type Doctor interface {
	Get(ctx context.Context) (*library.Capabilities, error)
}

type Exporter interface {
	Export(req export.Request, video, audio []timeline.TrackClip, pathOf func(timeline.TrackClip) (string, bool)) (*export.Response, error)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port         int
	Token        string
	Version      string
	Timeline     Timeline
	Library      AssetLibrary
	MediaServer  MediaServer
	Exporter     Exporter
	Doctor       Doctor
	Logger       *slog.Logger
	StartTime    time.Time
	PingInterval time.Duration
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// frame streams and media bodies are long-lived
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
