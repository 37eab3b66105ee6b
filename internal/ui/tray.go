package ui

import (
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

//go:embed icon.png
var iconBytes []byte

const refreshInterval = 250 * time.Millisecond

// Playback is the part of the engine the tray drives.
type Playback interface {
	Snapshot() timeline.Snapshot
	TogglePlay() bool
}

type Tray struct {
	playback Playback
	logger   *slog.Logger

	playheadItem *systray.MenuItem
	clipsItem    *systray.MenuItem
	playItem     *systray.MenuItem

	mu   sync.Mutex
	done chan struct{}

	onQuit func()
}

type TrayConfig struct {
	Playback Playback
	Logger   *slog.Logger
	OnQuit   func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		playback: cfg.Playback,
		logger:   cfg.Logger,
		onQuit:   cfg.OnQuit,
		done:     make(chan struct{}),
	}
}

// Run blocks on the platform event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Heimdex")
	systray.SetTooltip("Heimdex Editor")

	t.playheadItem = systray.AddMenuItem(playheadLabel(0, 0), "Timeline playhead")
	t.playheadItem.Disable()

	t.clipsItem = systray.AddMenuItem(clipsLabel(0, 0), "Clips on the timeline")
	t.clipsItem.Disable()

	systray.AddSeparator()

	t.playItem = systray.AddMenuItem(playLabel(false), "Play or pause the timeline")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Editor")

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-t.playItem.ClickedCh:
				playing := t.playback.TogglePlay()
				t.logger.Debug("playback toggled from tray", "playing", playing)
				t.refresh()
			case <-ticker.C:
				t.refresh()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.done:
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refresh() {
	snap := t.playback.Snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.playheadItem.SetTitle(playheadLabel(snap.CurrentSeconds, snap.TrackDurationSeconds))
	t.clipsItem.SetTitle(clipsLabel(len(snap.Video), len(snap.Audio)))
	t.playItem.SetTitle(playLabel(snap.Playing))
}

func (t *Tray) Quit() {
	t.mu.Lock()
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	t.mu.Unlock()
	systray.Quit()
}

func playLabel(playing bool) string {
	if playing {
		return "Pause"
	}
	return "Play"
}

func clipsLabel(video, audio int) string {
	return fmt.Sprintf("Clips: %d video, %d audio", video, audio)
}

func playheadLabel(current, total float64) string {
	return fmt.Sprintf("Playhead: %s / %s", clockTime(current), clockTime(total))
}

// clockTime renders seconds as m:ss.t, or h:mm:ss.t past an hour.
func clockTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	tenths := int64(math.Floor(seconds*10 + 1e-6))
	h := tenths / 36000
	m := tenths / 600 % 60
	s := tenths / 10 % 60
	f := tenths % 10
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%d", h, m, s, f)
	}
	return fmt.Sprintf("%d:%02d.%d", m, s, f)
}
