package timeline

import (
	"fmt"
	"math"
)

// PointerGeometry locates a pointer relative to a track lane, in pixels.
type PointerGeometry struct {
	PointerX     float64 `json:"pointer_x"`
	LaneOriginX  float64 `json:"lane_origin_x"`
	ScrollOffset float64 `json:"scroll_offset"`
}

type dragKind int

const (
	dragAsset dragKind = iota + 1
	dragClip
)

// dragState is the transient state of one drag gesture. Nothing in it is
// visible in the Store until the drag is dropped.
type dragState struct {
	kind  dragKind
	asset DragAsset

	// clip is the clip being created (asset drags, with a pre-generated id)
	// or a snapshot of the clip being repositioned.
	clip       TrackClip
	origin     MediaType
	grabOffset float64

	lane    MediaType
	preview []TrackClip
	linked  []TrackClip
}

// startSeconds converts pointer geometry to a candidate clip start.
func (e *Engine) startSeconds(g PointerGeometry, grabOffset float64) float64 {
	return math.Max(0, (g.PointerX-g.LaneOriginX+g.ScrollOffset-grabOffset)/e.pixelsPerSecond)
}

// BeginAssetDrag starts dragging a library asset toward the tracks. Any drag
// already in progress is discarded.
func (e *Engine) BeginAssetDrag(asset DragAsset) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.newAssetDrag(asset)
	if err != nil {
		return err
	}
	e.drag = d
	return nil
}

// BeginClipDrag starts repositioning a placed clip. grabOffsetPixels is where
// inside the clip the pointer picked it up.
func (e *Engine) BeginClipDrag(clipID string, grabOffsetPixels float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.newClipDrag(clipID)
	if err != nil {
		return err
	}
	d.grabOffset = grabOffsetPixels
	if e.trim != nil && e.trim.origin.ID == clipID {
		e.trim = nil
	}
	e.drag = d
	return nil
}

// DragOver recomputes the ripple preview for the pointer hovering over lane.
// An invalid lane behaves like DragLeave.
func (e *Engine) DragOver(lane MediaType, g PointerGeometry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag == nil {
		return
	}
	if !lane.Valid() {
		e.drag.clearPreview()
		return
	}
	e.resolveDrag(e.drag, lane, e.startSeconds(g, e.drag.grabOffset))
}

// DragLeave drops the preview when the pointer leaves every lane. The drag
// itself stays alive until Drop or CancelDrag.
func (e *Engine) DragLeave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag != nil {
		e.drag.clearPreview()
	}
}

// Drop commits the drag onto lane and reports whether anything changed.
// Dropping outside a valid lane cancels the drag and leaves the tracks as
// they were before it began.
func (e *Engine) Drop(lane MediaType, g PointerGeometry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.drag
	e.drag = nil
	if d == nil || !lane.Valid() {
		return false
	}
	if d.kind == dragClip {
		// The snapshot must still be what the store holds.
		current, track, ok := e.store.Find(d.clip.ID)
		if !ok || track != d.origin || current != d.clip {
			return false
		}
	}
	e.resolveDrag(d, lane, e.startSeconds(g, d.grabOffset))
	e.commitDrag(d)
	e.reconcileLocked(true)
	return true
}

// CancelDrag abandons any drag in progress.
func (e *Engine) CancelDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drag = nil
}

// DraggingClipID is the id of the clip under the pointer, or "" when idle.
func (e *Engine) DraggingClipID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag == nil {
		return ""
	}
	return e.drag.clip.ID
}

// RipplePreviewClips is the list the UI should render for track: the ripple
// preview while a drag hovers that track, the committed clips otherwise.
func (e *Engine) RipplePreviewClips(track MediaType) []TrackClip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previewClipsLocked(track)
}

func (e *Engine) previewClipsLocked(track MediaType) []TrackClip {
	d := e.drag
	if d == nil || d.lane == "" {
		return e.store.Clips(track)
	}
	if track == d.lane {
		return cloneClips(d.preview)
	}
	if track == MediaAudio && d.linked != nil {
		return cloneClips(d.linked)
	}
	if d.kind == dragClip && track == d.origin {
		return withoutClip(e.store.Clips(track), d.clip.ID)
	}
	return e.store.Clips(track)
}

// PlaceAsset drops asset onto lane at start in one step and returns the clip
// created on that lane.
func (e *Engine) PlaceAsset(asset DragAsset, lane MediaType, start float64) (TrackClip, error) {
	if !lane.Valid() {
		return TrackClip{}, fmt.Errorf("%w: %q", ErrInvalidLane, lane)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.newAssetDrag(asset)
	if err != nil {
		return TrackClip{}, err
	}
	placed := e.resolveDrag(d, lane, math.Max(0, start))
	e.commitDrag(d)
	e.reconcileLocked(true)
	return placed, nil
}

// RepositionClip moves a placed clip to start on lane in one step.
func (e *Engine) RepositionClip(clipID string, lane MediaType, start float64) (TrackClip, error) {
	if !lane.Valid() {
		return TrackClip{}, fmt.Errorf("%w: %q", ErrInvalidLane, lane)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.newClipDrag(clipID)
	if err != nil {
		return TrackClip{}, err
	}
	e.endGesturesLocked(clipID)
	placed := e.resolveDrag(d, lane, math.Max(0, start))
	e.commitDrag(d)
	e.reconcileLocked(true)
	return placed, nil
}

func (e *Engine) newAssetDrag(asset DragAsset) (*dragState, error) {
	if asset.DurationSeconds <= 0 || asset.ObjectURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAsset, asset.ID)
	}
	return &dragState{
		kind:  dragAsset,
		asset: asset,
		clip:  newClipFromAsset(asset, MediaVideo, e.newID(), 0),
	}, nil
}

func (e *Engine) newClipDrag(clipID string) (*dragState, error) {
	clip, track, ok := e.store.Find(clipID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClip, clipID)
	}
	return &dragState{kind: dragClip, clip: clip, origin: track}, nil
}

// resolveDrag computes the ripple preview of d landing on lane at start and
// returns the dragged clip as it would be placed.
func (e *Engine) resolveDrag(d *dragState, lane MediaType, start float64) TrackClip {
	placed := d.clip
	placed.StartSeconds = start
	placed.MediaType = lane

	d.lane = lane
	d.preview = Ripple(e.store.Clips(lane), placed)
	d.linked = nil

	if d.kind == dragAsset && lane == MediaVideo {
		audio := newClipFromAsset(d.asset, MediaAudio, linkedAudioID(placed.ID), start)
		d.linked = Ripple(e.store.Clips(MediaAudio), audio)
	}
	return placed
}

// commitDrag installs d's resolved preview as the authoritative tracks.
func (e *Engine) commitDrag(d *dragState) {
	if d.lane == "" {
		return
	}
	if d.kind == dragClip && d.origin != d.lane {
		e.store.Remove(d.origin, d.clip.ID)
	}
	e.store.Replace(d.lane, d.preview)
	if d.linked != nil {
		e.store.Replace(MediaAudio, d.linked)
	}
	if e.logger != nil {
		e.logger.Debug("drop committed", "clip_id", d.clip.ID, "lane", d.lane, "linked_audio", d.linked != nil)
	}
}

func (d *dragState) clearPreview() {
	d.lane = ""
	d.preview = nil
	d.linked = nil
}

func withoutClip(clips []TrackClip, id string) []TrackClip {
	out := clips[:0]
	for _, c := range clips {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
