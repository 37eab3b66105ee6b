package timeline

import "encoding/json"

type SourceType string

const (
	SourceTimeline SourceType = "timeline"
	SourceEmpty    SourceType = "empty"
)

// PreviewSource describes what the preview surface should show. It is either
// a TimelineSource or an EmptySource.
type PreviewSource interface {
	SourceType() SourceType
	Playhead() float64
	isPreviewSource()
}

// TimelineSource binds the preview to a window of a clip's media.
type TimelineSource struct {
	ClipID               string  `json:"clipId"`
	ObjectURL            string  `json:"objectUrl"`
	DurationSeconds      float64 `json:"durationSeconds"`
	SourceStartSeconds   float64 `json:"sourceStartSeconds"`
	SourceEndSeconds     float64 `json:"sourceEndSeconds"`
	TimelineStartSeconds float64 `json:"timelineStartSeconds"`
	PlayheadSeconds      float64 `json:"playheadSeconds"`
	TimelinePlaying      bool    `json:"timelinePlaying"`
}

// EmptySource is the synthetic frame shown over a gap between clips.
type EmptySource struct {
	DurationSeconds float64 `json:"durationSeconds"`
	StartSeconds    float64 `json:"startSeconds"`
	PlayheadSeconds float64 `json:"playheadSeconds"`
	TimelinePlaying bool    `json:"timelinePlaying"`
}

func (TimelineSource) SourceType() SourceType { return SourceTimeline }
func (EmptySource) SourceType() SourceType    { return SourceEmpty }

func (s TimelineSource) Playhead() float64 { return s.PlayheadSeconds }
func (s EmptySource) Playhead() float64    { return s.PlayheadSeconds }

func (TimelineSource) isPreviewSource() {}
func (EmptySource) isPreviewSource()    {}

func (s TimelineSource) MarshalJSON() ([]byte, error) {
	type plain TimelineSource
	return json.Marshal(struct {
		SourceType SourceType `json:"sourceType"`
		plain
	}{SourceTimeline, plain(s)})
}

func (s EmptySource) MarshalJSON() ([]byte, error) {
	type plain EmptySource
	return json.Marshal(struct {
		SourceType SourceType `json:"sourceType"`
		plain
	}{SourceEmpty, plain(s)})
}

// previewAt builds the preview for time t from a track's clips. Gaps report
// the span between the surrounding clips, bounded by trackDuration.
func previewAt(clips []TrackClip, t, trackDuration float64, playing bool) PreviewSource {
	if clip, ok := activeAt(clips, t); ok {
		return TimelineSource{
			ClipID:               clip.ID,
			ObjectURL:            clip.ObjectURL,
			DurationSeconds:      clip.DurationSeconds,
			SourceStartSeconds:   clip.SourceStartSeconds,
			SourceEndSeconds:     clip.SourceEndSeconds,
			TimelineStartSeconds: clip.StartSeconds,
			PlayheadSeconds:      t,
			TimelinePlaying:      playing,
		}
	}

	start, end := 0.0, trackDuration
	for _, c := range clips {
		if c.EndSeconds() <= t && c.EndSeconds() > start {
			start = c.EndSeconds()
		}
		if c.StartSeconds > t && c.StartSeconds < end {
			end = c.StartSeconds
		}
	}
	if end < start {
		end = start
	}
	return EmptySource{
		DurationSeconds: end - start,
		StartSeconds:    start,
		PlayheadSeconds: t,
		TimelinePlaying: playing,
	}
}
