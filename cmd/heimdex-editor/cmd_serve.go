package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/api"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/player"
	"github.com/heimdex/heimdex-editor/internal/timeline"
	"github.com/heimdex/heimdex-editor/internal/ui"
	"github.com/heimdex/heimdex-editor/internal/watcher"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editor engine and its HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting heimdex editor", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	database, err := db.New(cfg.LibraryDSN(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	prober := library.NewFFprobe(cfg.FFprobePath(), cfg.ProbeTimeout())
	lib := library.New(
		library.NewRepository(database.Conn()),
		prober,
		logging.WithComponent(logger, "library"),
		library.WithConcurrency(cfg.ImportConcurrency()),
	)
	doctor := library.NewCachedDoctor(prober, logging.WithComponent(logger, "doctor"))
	if caps, err := doctor.Get(cmd.Context()); err == nil && !caps.FFprobe {
		logger.Warn("ffprobe unavailable, imports will fail", "error", caps.Error)
	}

	// The headless primitives stop at the end of their media like a real
	// element; durations come from the library.
	durationOf := func(url string) (float64, bool) {
		h, err := lib.Resolve(context.Background(), url)
		if err != nil {
			return 0, false
		}
		a, err := lib.Get(context.Background(), h.AssetID)
		if err != nil {
			return 0, false
		}
		return a.DurationSeconds, true
	}
	playerLogger := logging.WithComponent(logger, "player")
	video := player.NewVirtual("video", player.WithDurations(durationOf), player.WithLogger(playerLogger))
	audio := player.NewVirtual("audio", player.WithDurations(durationOf), player.WithLogger(playerLogger))

	engine := timeline.NewEngine(timeline.Config{
		PixelsPerSecond: cfg.PixelsPerSecond(),
		TickInterval:    cfg.TickInterval(),
		Video:           video,
		Audio:           audio,
		Assets:          lib,
		Logger:          logging.WithComponent(logger, "timeline"),
	})

	printBanner(cfg)

	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Token:       cfg.Token(),
		Version:     config.Version,
		Timeline:    engine,
		Library:     lib,
		MediaServer: media.NewServer(lib, logging.WithComponent(logger, "media")),
		Exporter:    export.NewExporter(cfg.ExportDir(), logging.WithComponent(logger, "export")),
		Doctor:      doctor,
		Logger:      logger,
		StartTime:   startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	var folder *watcher.PollWatcher
	if dir := cfg.WatchDir(); dir != "" {
		folder = watchFolder(lib, dir, logging.WithComponent(logger, "watcher"))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	var tray *ui.Tray
	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Playback: engine,
			Logger:   logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		if tray != nil {
			tray.Quit()
		}
	case <-quitCh:
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if folder != nil {
		folder.Stop()
	}
	engine.Close()
	if err := lib.Close(shutdownCtx); err != nil {
		logger.Error("failed to close library", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// watchFolder imports media files dropped into dir. Failures are logged;
// the watcher keeps running.
func watchFolder(lib *library.Library, dir string, logger *slog.Logger) *watcher.PollWatcher {
	w := watcher.NewPollWatcher(logger, watcher.WithFilter(library.IsVideoFile))
	w.OnChange(func(path string, ev watcher.EventType) {
		if ev == watcher.EventDelete {
			logger.Debug("watched file removed", "path", logging.SanitizePath(path))
			return
		}
		res, err := lib.Import(context.Background(), path)
		if err != nil {
			logger.Warn("watched import failed", "path", logging.SanitizePath(path), "error", err)
			return
		}
		logger.Info("watched file imported", "asset_id", res.Asset.ID, "duplicate", res.Duplicate, "event", ev.String())
	})
	if err := w.Watch(context.Background(), dir); err != nil {
		logger.Error("failed to watch folder", "error", err)
		return nil
	}
	return w
}

func printBanner(cfg config.Config) {
	auth := "disabled"
	if cfg.Token() != "" {
		auth = logging.SanitizeToken(cfg.Token())
	}
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║  %-57s║\n", "HEIMDEX EDITOR v"+config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-28d║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s║\n", auth)
	fmt.Printf("║  Exports:    %-45s║\n", logging.SanitizePath(cfg.ExportDir()))
	if cfg.WatchDir() != "" {
		fmt.Printf("║  Watching:   %-45s║\n", logging.SanitizePath(cfg.WatchDir()))
	}
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
}
