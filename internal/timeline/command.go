package timeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownAsset   = errors.New("unknown asset")
	ErrUnknownClip    = errors.New("unknown clip")
	ErrInvalidLane    = errors.New("invalid lane")
	ErrInvalidAsset   = errors.New("asset has no playable media")
	ErrInvalidEdge    = errors.New("invalid trim edge")
)

// AssetSource resolves library assets for placement.
type AssetSource interface {
	DragAsset(ctx context.Context, assetID string) (DragAsset, error)
}

type Op string

const (
	OpPlay           Op = "play"
	OpPause          Op = "pause"
	OpTogglePlay     Op = "toggle_play"
	OpSeek           Op = "seek"
	OpSeekBy         Op = "seek_by"
	OpSetViewport    Op = "set_viewport"
	OpPlaceAsset     Op = "place_asset"
	OpRepositionClip Op = "reposition_clip"
	OpTrimLeft       Op = "trim_left"
	OpTrimRight      Op = "trim_right"
	OpSplit          Op = "split"
	OpDelete         Op = "delete"
	OpSelect         Op = "select"
	OpClearSelection Op = "clear_selection"
)

// Command is one user gesture. Which fields matter depends on Op.
type Command struct {
	Op      Op        `json:"op"`
	AssetID string    `json:"asset_id,omitempty"`
	ClipID  string    `json:"clip_id,omitempty"`
	Track   MediaType `json:"track,omitempty"`
	Seconds float64   `json:"seconds,omitempty"`
	Pixels  float64   `json:"pixels,omitempty"`
}

// Dispatch runs cmd against the engine and returns the resulting state.
// Geometrically invalid edits are no-ops, not errors; errors are reserved
// for commands that name things that do not exist.
func (e *Engine) Dispatch(ctx context.Context, cmd Command) (Snapshot, error) {
	if err := e.dispatch(ctx, cmd); err != nil {
		return Snapshot{}, err
	}
	return e.Snapshot(), nil
}

func (e *Engine) dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Op {
	case OpPlay:
		e.Play()
	case OpPause:
		e.Pause()
	case OpTogglePlay:
		e.TogglePlay()
	case OpSeek:
		e.Seek(cmd.Seconds)
	case OpSeekBy:
		e.SeekBy(cmd.Seconds)
	case OpSetViewport:
		e.SetViewport(cmd.Pixels)
	case OpPlaceAsset:
		if e.assets == nil {
			return fmt.Errorf("%w: %s", ErrUnknownAsset, cmd.AssetID)
		}
		asset, err := e.assets.DragAsset(ctx, cmd.AssetID)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnknownAsset, cmd.AssetID, err)
		}
		_, err = e.PlaceAsset(asset, laneOrVideo(cmd.Track), cmd.Seconds)
		return err
	case OpRepositionClip:
		track := cmd.Track
		if track == "" {
			track = e.trackOf(cmd.ClipID)
		}
		if track == "" {
			return fmt.Errorf("%w: %s", ErrUnknownClip, cmd.ClipID)
		}
		_, err := e.RepositionClip(cmd.ClipID, track, cmd.Seconds)
		return err
	case OpTrimLeft:
		_, err := e.TrimLeft(cmd.ClipID, cmd.Seconds)
		return err
	case OpTrimRight:
		_, err := e.TrimRight(cmd.ClipID, cmd.Seconds)
		return err
	case OpSplit:
		e.Split()
	case OpDelete:
		e.Delete(cmd.ClipID)
	case OpSelect:
		return e.Select(cmd.ClipID)
	case OpClearSelection:
		e.ClearSelection()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
	}
	return nil
}

func (e *Engine) trackOf(clipID string) MediaType {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, track, _ := e.store.Find(clipID)
	return track
}

func laneOrVideo(track MediaType) MediaType {
	if track == "" {
		return MediaVideo
	}
	return track
}
