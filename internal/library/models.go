package library

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// ObjectURLPrefix is the path media handles are served under.
const ObjectURLPrefix = "/media/"

// Asset is an imported media file. The embedded handle is what the tracks
// and the preview surface play from.
type Asset struct {
	ID              string    `json:"id"`
	Signature       string    `json:"signature"`
	Title           string    `json:"title"`
	Path            string    `json:"path"`
	SizeBytes       int64     `json:"size_bytes"`
	ModTime         time.Time `json:"mod_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	Handle          string    `json:"handle"`
	CoverImage      string    `json:"cover_image,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ObjectURL is the playable URL of the asset's media handle.
func (a *Asset) ObjectURL() string {
	return ObjectURLPrefix + a.Handle
}

// VideoAsset converts the asset into the record the timeline works with.
func (a *Asset) VideoAsset() timeline.VideoAsset {
	return timeline.VideoAsset{
		ID:              a.ID,
		Signature:       a.Signature,
		Title:           a.Title,
		DurationSeconds: a.DurationSeconds,
		ObjectURL:       a.ObjectURL(),
		CoverImage:      a.CoverImage,
	}
}

// Handle maps an object URL handle back to the file it serves.
type Handle struct {
	Handle      string `json:"handle"`
	AssetID     string `json:"asset_id"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
}

// ImportResult is the outcome of importing one file. A failed import carries
// Error instead of an asset.
type ImportResult struct {
	Path      string `json:"path"`
	Asset     *Asset `json:"asset,omitempty"`
	Duplicate bool   `json:"duplicate"`
	Error     string `json:"error,omitempty"`
}

var VideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

func IsVideoFile(filename string) bool {
	_, ok := VideoExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func contentType(filename string) string {
	if ct, ok := VideoExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Signature identifies a file by name, size and modification time, which is
// enough to spot the same file imported twice.
func Signature(filename string, size int64, modTime time.Time) string {
	return fmt.Sprintf("%s:%d:%d", filepath.Base(filename), size, modTime.UnixNano())
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func NewID() string {
	return uuid.NewString()
}
