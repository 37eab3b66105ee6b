package library

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantDur   float64
		wantTitle string
		wantVideo bool
		wantAudio bool
		wantErr   error
	}{
		{
			name:      "format duration",
			data:      `{"format":{"duration":"12.480000","format_name":"mov,mp4","tags":{"title":"Intro"}},"streams":[{"codec_type":"video"},{"codec_type":"audio"}]}`,
			wantDur:   12.48,
			wantTitle: "Intro",
			wantVideo: true,
			wantAudio: true,
		},
		{
			name:      "stream duration only",
			data:      `{"format":{"format_name":"matroska,webm"},"streams":[{"codec_type":"video","duration":"4.5"},{"codec_type":"audio","duration":"4.75"}]}`,
			wantDur:   4.75,
			wantVideo: true,
			wantAudio: true,
		},
		{
			name:    "no duration",
			data:    `{"format":{"format_name":"image2"},"streams":[{"codec_type":"video"}]}`,
			wantErr: ErrNoDuration,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseProbeOutput([]byte(tc.data))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.DurationSeconds != tc.wantDur || got.Title != tc.wantTitle || got.HasVideo != tc.wantVideo || got.HasAudio != tc.wantAudio {
				t.Fatalf("parseProbeOutput = %+v", got)
			}
		})
	}
}

func TestParseProbeOutput_BadJSON(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFFprobe_MissingBinary(t *testing.T) {
	p := NewFFprobe("/nonexistent/ffprobe-binary", time.Second)
	if _, err := p.Probe(context.Background(), "/tmp/whatever.mp4"); err == nil {
		t.Fatal("Probe with a missing binary succeeded")
	}
}
