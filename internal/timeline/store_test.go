package timeline

import "testing"

func TestStore_ReplaceSortsAndCopies(t *testing.T) {
	s := NewStore()
	in := []TrackClip{
		{ID: "b", StartSeconds: 5, DurationSeconds: 1},
		{ID: "a", StartSeconds: 1, DurationSeconds: 1},
	}
	s.Replace(MediaVideo, in)
	in[0].StartSeconds = 100

	got := s.Clips(MediaVideo)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" || got[1].StartSeconds != 5 {
		t.Fatalf("Clips = %+v", got)
	}
	got[0].ID = "mutated"
	if s.Clips(MediaVideo)[0].ID != "a" {
		t.Fatal("Clips exposed the store's backing slice")
	}
}

func TestStore_FindUpdateRemove(t *testing.T) {
	s := NewStore()
	s.Replace(MediaVideo, []TrackClip{{ID: "v", StartSeconds: 0, DurationSeconds: 2}})
	s.Replace(MediaAudio, []TrackClip{{ID: "a", StartSeconds: 1, DurationSeconds: 3}})

	c, track, ok := s.Find("a")
	if !ok || track != MediaAudio {
		t.Fatalf("Find(a) = %v, %v", track, ok)
	}
	c.StartSeconds = 4
	if !s.Update(MediaAudio, c) {
		t.Fatal("Update returned false")
	}
	if s.FurthestEnd() != 7 {
		t.Fatalf("FurthestEnd = %v, want 7", s.FurthestEnd())
	}
	if s.Update(MediaVideo, c) {
		t.Fatal("Update on the wrong track succeeded")
	}

	if !s.Remove(MediaVideo, "v") || s.Remove(MediaVideo, "v") {
		t.Fatal("Remove did not remove exactly once")
	}
	if _, _, ok := s.Find("v"); ok {
		t.Fatal("removed clip still found")
	}
}

func TestStore_ActiveAtIsHalfOpen(t *testing.T) {
	s := NewStore()
	s.Replace(MediaVideo, []TrackClip{
		{ID: "a", StartSeconds: 0, DurationSeconds: 2},
		{ID: "b", StartSeconds: 2, DurationSeconds: 2},
	})

	tests := []struct {
		at   float64
		want string
	}{
		{at: 0, want: "a"},
		{at: 1.999, want: "a"},
		{at: 2, want: "b"},
		{at: 4, want: ""},
	}
	for _, tc := range tests {
		c, ok := s.ActiveAt(MediaVideo, tc.at)
		if tc.want == "" {
			if ok {
				t.Errorf("ActiveAt(%v) = %s, want none", tc.at, c.ID)
			}
			continue
		}
		if !ok || c.ID != tc.want {
			t.Errorf("ActiveAt(%v) = %s, want %s", tc.at, c.ID, tc.want)
		}
	}
}

func TestTrackClip_SourceTimeAtClamps(t *testing.T) {
	c := TrackClip{StartSeconds: 10}
	c.setSourceWindow(2, 6)

	tests := []struct{ at, want float64 }{
		{at: 9, want: 2},
		{at: 11.5, want: 3.5},
		{at: 30, want: 6},
	}
	for _, tc := range tests {
		if got := c.SourceTimeAt(tc.at); got != tc.want {
			t.Errorf("SourceTimeAt(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}
}
