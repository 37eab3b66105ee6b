package media

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
		wantOK    bool
		wantErr   error
	}{
		{"no header", "", 1000, 0, 0, false, nil},
		{"full range", "bytes=0-999", 1000, 0, 999, true, nil},
		{"open end", "bytes=500-", 1000, 500, 999, true, nil},
		{"suffix", "bytes=-500", 1000, 500, 999, true, nil},
		{"single byte", "bytes=0-0", 1000, 0, 0, true, nil},
		{"end clamped", "bytes=0-2000", 1000, 0, 999, true, nil},
		{"suffix longer than file", "bytes=-2000", 500, 0, 499, true, nil},
		{"first of many", "bytes=0-99, 200-299", 1000, 0, 99, true, nil},

		{"start at size", "bytes=1000-", 1000, 0, 0, false, ErrUnsatisfiable},
		{"past the end", "bytes=1500-2000", 1000, 0, 0, false, ErrUnsatisfiable},
		{"reversed", "bytes=200-100", 1000, 0, 0, false, ErrUnsatisfiable},
		{"suffix of empty file", "bytes=-10", 0, 0, 0, false, ErrUnsatisfiable},
		{"no unit", "0-100", 1000, 0, 0, false, ErrInvalidRange},
		{"wrong unit", "chars=0-100", 1000, 0, 0, false, ErrInvalidRange},
		{"no dash", "bytes=100", 1000, 0, 0, false, ErrInvalidRange},
		{"bad start", "bytes=abc-100", 1000, 0, 0, false, ErrInvalidRange},
		{"bad end", "bytes=0-abc", 1000, 0, 0, false, ErrInvalidRange},
		{"zero suffix", "bytes=-0", 1000, 0, 0, false, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseRange(tt.header, tt.size)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseRange() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange() unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ParseRange() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (got.Start != tt.wantStart || got.End != tt.wantEnd) {
				t.Errorf("ParseRange() = {%d, %d}, want {%d, %d}", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestByteRange(t *testing.T) {
	tests := []struct {
		r          ByteRange
		total      int64
		wantLength int64
		wantHeader string
	}{
		{ByteRange{0, 99}, 1000, 100, "bytes 0-99/1000"},
		{ByteRange{500, 999}, 1000, 500, "bytes 500-999/1000"},
		{ByteRange{0, 0}, 1, 1, "bytes 0-0/1"},
	}

	for _, tt := range tests {
		if got := tt.r.Length(); got != tt.wantLength {
			t.Errorf("Length() = %d, want %d", got, tt.wantLength)
		}
		if got := tt.r.ContentRange(tt.total); got != tt.wantHeader {
			t.Errorf("ContentRange() = %s, want %s", got, tt.wantHeader)
		}
	}
}
