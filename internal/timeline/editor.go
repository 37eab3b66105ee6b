package timeline

import (
	"fmt"
	"math"
)

// Edge names the side of a clip a trim gesture grabs.
type Edge string

const (
	EdgeLeft  Edge = "left"
	EdgeRight Edge = "right"
)

type trimState struct {
	edge   Edge
	track  MediaType
	origin TrackClip
	// applied is the clip as the gesture last left it in the store.
	applied TrackClip
}

// trimLeft moves the in-point forward by delta seconds. The start never moves
// backward and the clip never shrinks below MinClipDuration.
func trimLeft(origin TrackClip, delta float64) TrackClip {
	trim := clamp(delta, 0, origin.DurationSeconds-MinClipDuration)
	c := origin
	c.StartSeconds += trim
	c.setSourceWindow(origin.SourceStartSeconds+trim, origin.SourceEndSeconds)
	return c
}

// trimRight resizes the clip from its end. It may shrink to MinClipDuration
// and grow back only up to the duration origin had.
func trimRight(origin TrackClip, delta float64) TrackClip {
	floor := math.Min(MinClipDuration, origin.DurationSeconds)
	next := clamp(origin.DurationSeconds+delta, floor, origin.DurationSeconds)
	c := origin
	c.setSourceWindow(origin.SourceStartSeconds, origin.SourceEndSeconds-(origin.DurationSeconds-next))
	return c
}

func applyTrim(origin TrackClip, edge Edge, delta float64) TrackClip {
	if edge == EdgeLeft {
		return trimLeft(origin, delta)
	}
	return trimRight(origin, delta)
}

// BeginTrim starts a trim gesture on clipID. The clip as it is now bounds
// the whole gesture.
func (e *Engine) BeginTrim(clipID string, edge Edge) error {
	if edge != EdgeLeft && edge != EdgeRight {
		return fmt.Errorf("%w: %q", ErrInvalidEdge, edge)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	clip, track, ok := e.store.Find(clipID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClip, clipID)
	}
	e.endGesturesLocked(clipID)
	e.trim = &trimState{edge: edge, track: track, origin: clip, applied: clip}
	return nil
}

// UpdateTrim applies the pointer's total horizontal travel since BeginTrim.
func (e *Engine) UpdateTrim(deltaPixels float64) (TrackClip, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.trim == nil {
		return TrackClip{}, false
	}
	// Another edit reshaped the clip mid-gesture; rebuilding it from the
	// origin would undo that edit.
	current, track, ok := e.store.Find(e.trim.origin.ID)
	if !ok || track != e.trim.track || current != e.trim.applied {
		e.trim = nil
		return TrackClip{}, false
	}
	clip := applyTrim(e.trim.origin, e.trim.edge, deltaPixels/e.pixelsPerSecond)
	e.store.Update(track, clip)
	e.trim.applied = clip
	e.reconcileLocked(true)
	return clip, true
}

// EndTrim finishes the trim gesture, leaving the last applied trim in place.
func (e *Engine) EndTrim() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trim = nil
}

// TrimLeft trims deltaSeconds from the start of clipID in one step.
func (e *Engine) TrimLeft(clipID string, deltaSeconds float64) (TrackClip, error) {
	return e.trimOnce(clipID, EdgeLeft, deltaSeconds)
}

// TrimRight resizes clipID from its end by deltaSeconds in one step. Without
// an enclosing gesture the clip's current duration is the cap, so only
// shrinking has an effect.
func (e *Engine) TrimRight(clipID string, deltaSeconds float64) (TrackClip, error) {
	return e.trimOnce(clipID, EdgeRight, deltaSeconds)
}

func (e *Engine) trimOnce(clipID string, edge Edge, delta float64) (TrackClip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	clip, track, ok := e.store.Find(clipID)
	if !ok {
		return TrackClip{}, fmt.Errorf("%w: %s", ErrUnknownClip, clipID)
	}
	clip = applyTrim(clip, edge, delta)
	e.store.Update(track, clip)
	e.endGesturesLocked(clipID)
	e.reconcileLocked(true)
	return clip, nil
}

// Select marks clipID as the target of Split and Delete.
func (e *Engine) Select(clipID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, _, ok := e.store.Find(clipID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClip, clipID)
	}
	e.selectedID = clipID
	e.reconcileLocked(true)
	return nil
}

func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectedID = ""
	e.reconcileLocked(true)
}

// Split cuts the target clip at the playhead. The target is the selected
// clip, or else the clip under the playhead on the video track, then the
// audio track. It is a no-op unless the playhead is strictly inside the clip
// and both halves keep at least MinClipDuration.
func (e *Engine) Split() (left, right TrackClip, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.clock.Current()
	target, track, found := e.splitTargetLocked(t)
	if !found {
		return TrackClip{}, TrackClip{}, false
	}
	left, right, ok = splitAt(target, t, e.newID())
	if !ok {
		return TrackClip{}, TrackClip{}, false
	}

	clips := e.store.Clips(track)
	for i := range clips {
		if clips[i].ID == left.ID {
			clips[i] = left
		}
	}
	e.store.Replace(track, append(clips, right))
	e.endGesturesLocked(left.ID)
	e.reconcileLocked(true)
	return left, right, true
}

func (e *Engine) splitTargetLocked(t float64) (TrackClip, MediaType, bool) {
	if e.selectedID != "" {
		return e.store.Find(e.selectedID)
	}
	for _, track := range []MediaType{MediaVideo, MediaAudio} {
		if c, ok := e.store.ActiveAt(track, t); ok {
			return c, track, true
		}
	}
	return TrackClip{}, "", false
}

func splitAt(c TrackClip, t float64, rightID string) (TrackClip, TrackClip, bool) {
	if t <= c.StartSeconds+epsilon || t >= c.EndSeconds()-epsilon {
		return TrackClip{}, TrackClip{}, false
	}
	leftDur := t - c.StartSeconds
	if leftDur < MinClipDuration || c.DurationSeconds-leftDur < MinClipDuration {
		return TrackClip{}, TrackClip{}, false
	}

	left := c
	left.setSourceWindow(c.SourceStartSeconds, c.SourceStartSeconds+leftDur)

	right := c
	right.ID = rightID
	right.StartSeconds = t
	right.setSourceWindow(c.SourceStartSeconds+leftDur, c.SourceEndSeconds)
	return left, right, true
}

// Delete removes clipID, or the selected clip when clipID is empty, and
// reports whether a clip was removed.
func (e *Engine) Delete(clipID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if clipID == "" {
		clipID = e.selectedID
	}
	if clipID == "" {
		return false
	}
	_, track, ok := e.store.Find(clipID)
	if !ok {
		return false
	}
	e.store.Remove(track, clipID)

	if e.selectedID == clipID {
		e.selectedID = ""
	}
	e.endGesturesLocked(clipID)
	e.reconcileLocked(true)
	return true
}

// endGesturesLocked abandons any drag or trim gesture holding a snapshot of
// clipID. Every edit that changes a clip outside its own gesture calls it.
func (e *Engine) endGesturesLocked(clipID string) {
	if e.drag != nil && e.drag.kind == dragClip && e.drag.clip.ID == clipID {
		e.drag = nil
	}
	if e.trim != nil && e.trim.origin.ID == clipID {
		e.trim = nil
	}
}
