package export

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	TrackVideo = "V"
	TrackAudio = "A"

	reelName       = "AX"
	defaultFPS     = 30
	maxClipNameLen = 64
)

// Events lays out both tracks as EDL events ordered by record position, video
// before audio at the same position. pathOf returns false for clips whose
// media is gone; their IDs come back as unresolved.
func Events(video, audio []timeline.TrackClip, pathOf func(timeline.TrackClip) (string, bool)) ([]Event, []string) {
	var events []Event
	var unresolved []string
	add := func(clips []timeline.TrackClip, track string) {
		for _, c := range clips {
			path, ok := pathOf(c)
			if !ok {
				unresolved = append(unresolved, c.ID)
				continue
			}
			name := SanitizeName(c.Title, maxClipNameLen)
			if name == "" {
				name = c.ID
			}
			events = append(events, Event{
				ClipID:    c.ID,
				Track:     track,
				ClipName:  name,
				MediaPath: path,
				SourceIn:  c.SourceStartSeconds,
				SourceOut: c.SourceEndSeconds,
				RecordIn:  c.StartSeconds,
				RecordOut: c.EndSeconds(),
			})
		}
	}
	add(video, TrackVideo)
	add(audio, TrackAudio)

	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.RecordIn, b.RecordIn); c != 0 {
			return c
		}
		return strings.Compare(b.Track, a.Track)
	})
	return events, unresolved
}

// GenerateEDL renders events as a CMX3600 edit decision list.
func GenerateEDL(events []Event, title string, frameRate float64) string {
	tc := newTimecoder(frameRate)

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, maxClipNameLen))}
	if tc.dropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, ev := range events {
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, reelName, ev.Track,
				tc.format(ev.SourceIn), tc.format(ev.SourceOut), tc.format(ev.RecordIn), tc.format(ev.RecordOut)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", ev.MediaPath),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

type timecoder struct {
	fps       int
	dropFrame bool
	// frames skipped at the start of each minute except every tenth
	drop int
}

func newTimecoder(frameRate float64) timecoder {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = defaultFPS
	}
	tc := timecoder{fps: fps}
	switch {
	case math.Abs(frameRate-29.97) < 0.01:
		tc.dropFrame, tc.drop = true, 2
	case math.Abs(frameRate-59.94) < 0.01:
		tc.dropFrame, tc.drop = true, 4
	}
	return tc
}

func (tc timecoder) format(seconds float64) string {
	frames := int(math.Round(seconds * float64(tc.fps)))
	sep := ":"
	if tc.dropFrame {
		frames = tc.dropFrameNumber(frames)
		sep = ";"
	}
	ff := frames % tc.fps
	totalSeconds := frames / tc.fps
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", totalSeconds/3600, (totalSeconds/60)%60, totalSeconds%60, sep, ff)
}

// dropFrameNumber converts an actual frame count into the nominal frame
// number a drop-frame timecode displays.
func (tc timecoder) dropFrameNumber(frames int) int {
	perMinute := tc.fps*60 - tc.drop
	perTenMinutes := perMinute*10 + tc.drop
	tens, rem := frames/perTenMinutes, frames%perTenMinutes
	frames += 9 * tc.drop * tens
	if rem > tc.drop {
		frames += tc.drop * ((rem - tc.drop) / perMinute)
	}
	return frames
}
