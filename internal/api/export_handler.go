package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		if req.FrameRate < 0 {
			WriteError(w, http.StatusBadRequest, "frame_rate must not be negative", "BAD_REQUEST")
			return
		}

		// Clips keep their asset's path only while the asset is in the library.
		paths := map[string]string{}
		pathOf := func(c timeline.TrackClip) (string, bool) {
			if p, ok := paths[c.AssetID]; ok {
				return p, p != ""
			}
			a, err := cfg.Library.Get(r.Context(), c.AssetID)
			if err != nil {
				paths[c.AssetID] = ""
				return "", false
			}
			paths[c.AssetID] = a.Path
			return a.Path, true
		}

		video, audio := cfg.Timeline.Tracks()
		resp, err := cfg.Exporter.Export(req, video, audio, pathOf)
		switch {
		case errors.Is(err, export.ErrInvalidOutputDir):
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		case errors.Is(err, export.ErrEmptyTimeline):
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNRESOLVABLE_CLIPS")
			return
		case err != nil:
			cfg.Logger.Error("edl export failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
