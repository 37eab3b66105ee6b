package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const maxImportPaths = 256

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Token, cfg.Logger))

		r.Get("/assets", listAssetsHandler(cfg))
		r.Post("/assets", importAssetsHandler(cfg))
		r.Delete("/assets/{id}", deleteAssetHandler(cfg))

		r.Get("/timeline", timelineHandler(cfg))
		r.Get("/timeline/preview", previewHandler(cfg))
		r.Post("/timeline/commands", commandHandler(cfg))
		r.Get("/timeline/frames", framesHandler(cfg))
		r.Get("/timeline/session", sessionHandler(cfg))

		r.Post("/export/edl", exportEDLHandler(cfg))

		r.Group(func(r chi.Router) {
			r.Use(LoopbackGuard())
			r.Get("/media/{handle}", mediaHandler(cfg))
			r.Head("/media/{handle}", mediaHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, _ := cfg.Library.Count(r.Context())
		resp := HealthResponse{
			Status:     "ok",
			Version:    cfg.Version,
			UptimeS:    int64(time.Since(cfg.StartTime).Seconds()),
			AssetCount: count,
		}
		if cfg.Doctor != nil {
			if caps, err := cfg.Doctor.Get(r.Context()); err == nil {
				resp.Capabilities = caps
				if !caps.FFprobe {
					resp.Status = "degraded"
				}
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assets, err := cfg.Library.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list assets", "INTERNAL_ERROR")
			return
		}

		resp := AssetsResponse{Assets: make([]AssetResponse, len(assets))}
		for i, a := range assets {
			resp.Assets[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func importAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if len(req.Paths) == 0 {
			WriteError(w, http.StatusBadRequest, "paths is required", "BAD_REQUEST")
			return
		}
		if len(req.Paths) > maxImportPaths {
			WriteError(w, http.StatusBadRequest, "too many paths", "BAD_REQUEST")
			return
		}

		results, err := cfg.Library.ImportAll(r.Context(), req.Paths)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := ImportResponse{Results: make([]ImportResultResponse, len(results))}
		for i, res := range results {
			resp.Results[i] = ImportResultToResponse(res)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func deleteAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Library.Remove(r.Context(), id); err != nil {
			if errors.Is(err, library.ErrNotFound) {
				WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Timeline.Snapshot())
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Timeline.Preview())
	}
}

func commandHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd timeline.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		snap, err := cfg.Timeline.Dispatch(r.Context(), cmd)
		if err != nil {
			status, code := commandErrorStatus(err)
			WriteError(w, status, err.Error(), code)
			return
		}
		WriteJSON(w, http.StatusOK, snap)
	}
}

func commandErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, timeline.ErrUnknownAsset), errors.Is(err, timeline.ErrUnknownClip):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, timeline.ErrUnknownCommand),
		errors.Is(err, timeline.ErrInvalidLane),
		errors.Is(err, timeline.ErrInvalidEdge),
		errors.Is(err, timeline.ErrInvalidAsset):
		return http.StatusBadRequest, "BAD_REQUEST"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := chi.URLParam(r, "handle")
		if err := cfg.MediaServer.ServeHandle(w, r, handle); err != nil {
			cfg.Logger.Error("media serve failed", "handle", handle, "error", err)
		}
	}
}
