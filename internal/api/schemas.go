package api

import (
	"time"

	"github.com/heimdex/heimdex-editor/internal/library"
)

type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	UptimeS    int64  `json:"uptime_s"`
	AssetCount int    `json:"asset_count"`

	Capabilities *library.Capabilities `json:"capabilities,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type ImportRequest struct {
	Paths []string `json:"paths"`
}

type ImportResponse struct {
	Results []ImportResultResponse `json:"results"`
}

type ImportResultResponse struct {
	Path      string         `json:"path"`
	Asset     *AssetResponse `json:"asset,omitempty"`
	Duplicate bool           `json:"duplicate"`
	Error     string         `json:"error,omitempty"`
}

type AssetResponse struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	ObjectURL       string  `json:"object_url"`
	CoverImage      string  `json:"cover_image,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

func AssetToResponse(a *library.Asset) AssetResponse {
	return AssetResponse{
		ID:              a.ID,
		Title:           a.Title,
		DurationSeconds: a.DurationSeconds,
		SizeBytes:       a.SizeBytes,
		ObjectURL:       a.ObjectURL(),
		CoverImage:      a.CoverImage,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
	}
}

func ImportResultToResponse(r library.ImportResult) ImportResultResponse {
	resp := ImportResultResponse{Path: r.Path, Duplicate: r.Duplicate, Error: r.Error}
	if r.Asset != nil {
		a := AssetToResponse(r.Asset)
		resp.Asset = &a
	}
	return resp
}
