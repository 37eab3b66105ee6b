package timeline

import (
	"math"
	"time"
)

// Clock is the virtual timeline clock. While playing, the position is derived
// from an anchor (wall clock, base position) captured at play or seek, so a
// missed tick never accumulates drift.
type Clock struct {
	now func() time.Time

	current    float64
	playing    bool
	anchorWall time.Time
	anchorBase float64
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Current() float64 { return c.current }

func (c *Clock) Playing() bool { return c.playing }

// Play starts the clock from its current position. It is a no-op while playing.
func (c *Clock) Play() {
	if c.playing {
		return
	}
	c.anchorWall = c.now()
	c.anchorBase = c.current
	c.playing = true
}

func (c *Clock) Pause() {
	c.playing = false
	c.anchorWall = time.Time{}
	c.anchorBase = 0
}

// Tick advances the clock to the anchor-derived position, capped at
// trackDuration. It pauses and reports ended once the end is reached.
func (c *Clock) Tick(trackDuration float64) (next float64, ended bool) {
	if !c.playing {
		return c.current, false
	}
	elapsed := c.anchorBase + c.now().Sub(c.anchorWall).Seconds()
	next = math.Min(elapsed, trackDuration)
	c.current = next
	if next >= trackDuration {
		c.Pause()
		return next, true
	}
	return next, false
}

// Seek moves the clock to t clamped to [0, trackDuration], re-anchoring when
// playing.
func (c *Clock) Seek(t, trackDuration float64) float64 {
	t = clamp(t, 0, trackDuration)
	c.current = t
	if c.playing {
		c.anchorWall = c.now()
		c.anchorBase = t
	}
	return t
}

// TrackDuration is the playable length of the timeline: never shorter than
// one second, the visible viewport or the furthest clip end.
func TrackDuration(viewportSeconds, furthestEnd float64) float64 {
	return math.Max(1, math.Max(viewportSeconds, furthestEnd))
}
