package timeline

import "math"

// Ripple returns the track as it would look with placed inserted at its
// StartSeconds. Any clip placed overlaps is pushed right to the end of
// whatever it collides with, cascading through later clips in start order.
// Clips are never moved earlier and placed itself never moves. A clip with
// the same id as placed is treated as the one being moved and skipped.
func Ripple(clips []TrackClip, placed TrackClip) []TrackClip {
	others := make([]TrackClip, 0, len(clips))
	for _, c := range clips {
		if c.ID != placed.ID {
			others = append(others, c)
		}
	}
	sortByStart(others)

	result := make([]TrackClip, 0, len(others)+1)
	result = append(result, placed)

	for _, c := range others {
		c.StartSeconds = settle(result, c)
		result = append(result, c)
	}

	sortByStart(result)
	return result
}

// settle finds the earliest start at or after c.StartSeconds where c does not
// overlap any clip already in placed.
func settle(placed []TrackClip, c TrackClip) float64 {
	start := c.StartSeconds
	for {
		moved := false
		probe := c
		probe.StartSeconds = start
		for _, p := range placed {
			if probe.Overlaps(p) {
				start = math.Max(start, p.EndSeconds())
				moved = true
				break
			}
		}
		if !moved {
			return start
		}
	}
}
