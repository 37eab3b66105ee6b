package timeline

import "sort"

// Store owns the clip collections of both tracks. It is not safe for
// concurrent use; Engine serialises access to it.
type Store struct {
	video []TrackClip
	audio []TrackClip
}

func NewStore() *Store {
	return &Store{}
}

// Clips returns a copy of the track's clips in start order.
func (s *Store) Clips(track MediaType) []TrackClip {
	return cloneClips(*s.track(track))
}

// Replace installs clips as the authoritative collection for track.
func (s *Store) Replace(track MediaType, clips []TrackClip) {
	next := cloneClips(clips)
	sortByStart(next)
	*s.track(track) = next
}

// Find locates a clip by id on either track.
func (s *Store) Find(id string) (TrackClip, MediaType, bool) {
	for _, track := range []MediaType{MediaVideo, MediaAudio} {
		for _, c := range *s.track(track) {
			if c.ID == id {
				return c, track, true
			}
		}
	}
	return TrackClip{}, "", false
}

// Update overwrites the clip with the same id in place.
func (s *Store) Update(track MediaType, clip TrackClip) bool {
	clips := s.track(track)
	for i := range *clips {
		if (*clips)[i].ID == clip.ID {
			(*clips)[i] = clip
			sortByStart(*clips)
			return true
		}
	}
	return false
}

// Remove deletes a clip by id and reports whether it existed.
func (s *Store) Remove(track MediaType, id string) bool {
	clips := s.track(track)
	for i, c := range *clips {
		if c.ID == id {
			*clips = append((*clips)[:i:i], (*clips)[i+1:]...)
			return true
		}
	}
	return false
}

// ActiveAt returns the first clip in track order whose span contains t.
func (s *Store) ActiveAt(track MediaType, t float64) (TrackClip, bool) {
	return activeAt(*s.track(track), t)
}

// FurthestEnd is the largest clip end across both tracks.
func (s *Store) FurthestEnd() float64 {
	end := 0.0
	for _, track := range []MediaType{MediaVideo, MediaAudio} {
		for _, c := range *s.track(track) {
			if c.EndSeconds() > end {
				end = c.EndSeconds()
			}
		}
	}
	return end
}

func (s *Store) track(track MediaType) *[]TrackClip {
	if track == MediaAudio {
		return &s.audio
	}
	return &s.video
}

func activeAt(clips []TrackClip, t float64) (TrackClip, bool) {
	for _, c := range clips {
		if c.Contains(t) {
			return c, true
		}
	}
	return TrackClip{}, false
}

func cloneClips(clips []TrackClip) []TrackClip {
	if clips == nil {
		return nil
	}
	out := make([]TrackClip, len(clips))
	copy(out, clips)
	return out
}

func sortByStart(clips []TrackClip) {
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].StartSeconds < clips[j].StartSeconds
	})
}
