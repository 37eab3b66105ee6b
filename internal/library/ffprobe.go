package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Prober reads the properties of a media file. It stands in for the decode
// step of an import.
type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

type ProbeResult struct {
	DurationSeconds float64
	Title           string
	FormatName      string
	HasVideo        bool
	HasAudio        bool
}

var ErrNoDuration = errors.New("media has no duration")

// FFprobe probes files by running the ffprobe binary.
type FFprobe struct {
	bin     string
	timeout time.Duration
}

func NewFFprobe(bin string, timeout time.Duration) *FFprobe {
	if bin == "" {
		bin = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFprobe{bin: bin, timeout: timeout}
}

func (f *FFprobe) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeOutput(out)
}

type ffprobeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	res := &ProbeResult{FormatName: probe.Format.Format}
	res.DurationSeconds, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	streamDuration := 0.0
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			res.HasVideo = true
		case "audio":
			res.HasAudio = true
		}
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > streamDuration {
			streamDuration = d
		}
	}
	// Some containers only report duration per stream.
	if res.DurationSeconds <= 0 {
		res.DurationSeconds = streamDuration
	}
	if probe.Format.Tags != nil {
		res.Title = probe.Format.Tags["title"]
	}
	if res.DurationSeconds <= 0 {
		return nil, ErrNoDuration
	}
	return res, nil
}
