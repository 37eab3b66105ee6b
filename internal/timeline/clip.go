// Package timeline implements the editing core of the Heimdex editor: the
// clip store for the video and audio tracks, the virtual playback clock,
// ripple placement of dragged clips, trim/split/delete editing and the
// reconciliation of the virtual clock against native media playback.
package timeline

import (
	"math"

	"github.com/google/uuid"
)

// MinClipDuration is the shortest clip a trim or split may produce, in seconds.
const MinClipDuration = 0.2

// epsilon absorbs float noise when comparing clip boundaries.
const epsilon = 1e-9

type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// Valid reports whether m names one of the two lanes.
func (m MediaType) Valid() bool {
	return m == MediaVideo || m == MediaAudio
}

// VideoAsset is a library item produced by a successful import.
type VideoAsset struct {
	ID              string  `json:"id"`
	Signature       string  `json:"signature"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	ObjectURL       string  `json:"object_url"`
	CoverImage      string  `json:"cover_image,omitempty"`
}

// DragAsset is the part of a VideoAsset carried through a drag gesture.
type DragAsset struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	ObjectURL       string  `json:"object_url"`
	CoverImage      string  `json:"cover_image,omitempty"`
}

// Drag projects the asset for a drag gesture.
func (a VideoAsset) Drag() DragAsset {
	return DragAsset{
		ID:              a.ID,
		Title:           a.Title,
		DurationSeconds: a.DurationSeconds,
		ObjectURL:       a.ObjectURL,
		CoverImage:      a.CoverImage,
	}
}

// TrackClip is a placed, time-bounded window of a source asset.
type TrackClip struct {
	ID                   string    `json:"id"`
	AssetID              string    `json:"asset_id"`
	Title                string    `json:"title"`
	MediaType            MediaType `json:"media_type"`
	MediaDurationSeconds float64   `json:"media_duration_seconds"`
	StartSeconds         float64   `json:"start_seconds"`
	SourceStartSeconds   float64   `json:"source_start_seconds"`
	SourceEndSeconds     float64   `json:"source_end_seconds"`
	DurationSeconds      float64   `json:"duration_seconds"`
	ObjectURL            string    `json:"object_url"`
}

// EndSeconds is the exclusive timeline end of the clip.
func (c TrackClip) EndSeconds() float64 {
	return c.StartSeconds + c.DurationSeconds
}

// Contains reports whether t falls in [start, end).
func (c TrackClip) Contains(t float64) bool {
	return t >= c.StartSeconds && t < c.EndSeconds()
}

// Overlaps reports whether the half-open spans of c and o intersect.
func (c TrackClip) Overlaps(o TrackClip) bool {
	return c.StartSeconds < o.EndSeconds()-epsilon && o.StartSeconds < c.EndSeconds()-epsilon
}

// SourceTimeAt maps a timeline time onto the source media, clamped to the
// clip's source window.
func (c TrackClip) SourceTimeAt(t float64) float64 {
	return clamp(c.SourceStartSeconds+(t-c.StartSeconds), c.SourceStartSeconds, c.SourceEndSeconds)
}

// setSourceWindow is the only way mutators change a clip's window; it keeps
// DurationSeconds equal to SourceEnd - SourceStart.
func (c *TrackClip) setSourceWindow(start, end float64) {
	c.SourceStartSeconds = start
	c.SourceEndSeconds = end
	c.DurationSeconds = end - start
}

// newClipFromAsset builds a clip covering the whole asset.
func newClipFromAsset(asset DragAsset, media MediaType, id string, start float64) TrackClip {
	clip := TrackClip{
		ID:                   id,
		AssetID:              asset.ID,
		Title:                asset.Title,
		MediaType:            media,
		MediaDurationSeconds: asset.DurationSeconds,
		StartSeconds:         math.Max(0, start),
		ObjectURL:            asset.ObjectURL,
	}
	clip.setSourceWindow(0, asset.DurationSeconds)
	return clip
}

// linkedAudioID derives the id of the audio clip created alongside a video clip.
func linkedAudioID(videoClipID string) string {
	return videoClipID + "-audio"
}

func newClipID() string {
	return uuid.NewString()
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
