package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const FormatEDL = "edl"

var ErrEmptyTimeline = errors.New("timeline has no exportable clips")

// Exporter writes EDLs of the timeline to disk.
type Exporter struct {
	defaultDir string
	logger     *slog.Logger
}

func NewExporter(defaultDir string, logger *slog.Logger) *Exporter {
	return &Exporter{defaultDir: defaultDir, logger: logger}
}

// Export writes an EDL for the given tracks. Clips pathOf cannot resolve are
// left out and reported in the response.
func (x *Exporter) Export(req Request, video, audio []timeline.TrackClip, pathOf func(timeline.TrackClip) (string, bool)) (*Response, error) {
	dir := req.OutputDir
	if dir == "" {
		if err := os.MkdirAll(x.defaultDir, 0755); err != nil {
			return nil, fmt.Errorf("create export dir: %w", err)
		}
		dir = filepath.Clean(x.defaultDir)
	}
	if err := ValidateOutputDir(dir); err != nil {
		return nil, err
	}

	events, unresolved := Events(video, audio, pathOf)
	if len(events) == 0 {
		return nil, ErrEmptyTimeline
	}

	outPath := filepath.Join(dir, FileName(req.ProjectName))
	tmp := outPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(GenerateEDL(events, req.ProjectName, req.FrameRate)), 0644); err != nil {
		return nil, fmt.Errorf("write edl: %w", err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("write edl: %w", err)
	}

	if x.logger != nil {
		x.logger.Info("timeline exported", "path", outPath, "events", len(events), "unresolved", len(unresolved))
	}
	if unresolved == nil {
		unresolved = []string{}
	}
	return &Response{
		Status:          "ok",
		Format:          FormatEDL,
		OutputPath:      outPath,
		EventCount:      len(events),
		UnresolvedClips: unresolved,
	}, nil
}
