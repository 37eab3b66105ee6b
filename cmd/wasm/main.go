//go:build js && wasm

// Command wasm runs the timeline engine in the browser. The page supplies
// the <video> and <audio> elements and drives the engine through the
// heimdexEditor global.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall/js"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// assetRegistry is the browser-side import collaborator: the page registers
// each asset once its object URL exists.
type assetRegistry struct {
	mu     sync.Mutex
	assets map[string]timeline.DragAsset
}

func (r *assetRegistry) DragAsset(_ context.Context, id string) (timeline.DragAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return timeline.DragAsset{}, fmt.Errorf("%w: %s", timeline.ErrUnknownAsset, id)
	}
	return a, nil
}

func (r *assetRegistry) put(a timeline.DragAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.ID] = a
}

func main() {
	doc := js.Global().Get("document")
	video := doc.Call("querySelector", "video[data-heimdex-preview]")
	audio := doc.Call("querySelector", "audio[data-heimdex-preview]")
	if video.IsNull() || audio.IsNull() {
		js.Global().Get("console").Call("error", "heimdex: preview video and audio elements not found")
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	assets := &assetRegistry{assets: map[string]timeline.DragAsset{}}
	engine := timeline.NewEngine(timeline.Config{
		Scheduler: &rafScheduler{},
		Video:     newHTMLMedia(video),
		Audio:     newHTMLMedia(audio),
		Assets:    assets,
		Logger:    logger,
	})

	js.Global().Set("heimdexEditor", newBridge(engine, assets).object())
	logger.Info("heimdex editor engine ready")
	select {}
}

type bridge struct {
	engine *timeline.Engine
	assets *assetRegistry
	funcs  map[string]js.Func
}

func newBridge(engine *timeline.Engine, assets *assetRegistry) *bridge {
	return &bridge{engine: engine, assets: assets, funcs: map[string]js.Func{}}
}

func (b *bridge) object() js.Value {
	b.fn("registerAsset", b.registerAsset)
	b.fn("dispatch", b.dispatch)
	b.fn("tracks", b.tracks)
	b.fn("onFrame", b.onFrame)
	b.fn("beginAssetDrag", b.beginAssetDrag)
	b.fn("beginClipDrag", b.beginClipDrag)
	b.fn("dragOver", b.dragOver)
	b.fn("dragLeave", func(args []js.Value) (any, error) { b.engine.DragLeave(); return nil, nil })
	b.fn("drop", b.drop)
	b.fn("cancelDrag", func(args []js.Value) (any, error) { b.engine.CancelDrag(); return nil, nil })
	b.fn("beginTrim", b.beginTrim)
	b.fn("updateTrim", b.updateTrim)
	b.fn("endTrim", func(args []js.Value) (any, error) { b.engine.EndTrim(); return nil, nil })

	obj := js.Global().Get("Object").New()
	for name, f := range b.funcs {
		obj.Set(name, f)
	}
	return obj
}

// fn wraps h so Go errors surface as thrown JS errors.
func (b *bridge) fn(name string, h func(args []js.Value) (any, error)) {
	b.funcs[name] = js.FuncOf(func(this js.Value, args []js.Value) any {
		out, err := h(args)
		if err != nil {
			panic(js.Global().Get("Error").New(err.Error()))
		}
		return out
	})
}

func toJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return js.Global().Get("JSON").Call("parse", string(data)), nil
}

func argString(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func argFloat(args []js.Value, i int) float64 {
	if i >= len(args) || args[i].Type() != js.TypeNumber {
		return 0
	}
	return args[i].Float()
}

func argGeometry(args []js.Value, i int) timeline.PointerGeometry {
	if i >= len(args) || args[i].Type() != js.TypeObject {
		return timeline.PointerGeometry{}
	}
	o := args[i]
	num := func(k string) float64 {
		v := o.Get(k)
		if v.Type() != js.TypeNumber {
			return 0
		}
		return v.Float()
	}
	return timeline.PointerGeometry{
		PointerX:     num("pointerX"),
		LaneOriginX:  num("laneOriginX"),
		ScrollOffset: num("scrollOffset"),
	}
}

func (b *bridge) registerAsset(args []js.Value) (any, error) {
	var a timeline.DragAsset
	if err := json.Unmarshal([]byte(argString(args, 0)), &a); err != nil {
		return nil, fmt.Errorf("registerAsset: %w", err)
	}
	if a.ID == "" || a.ObjectURL == "" || a.DurationSeconds <= 0 {
		return nil, timeline.ErrInvalidAsset
	}
	b.assets.put(a)
	return nil, nil
}

func (b *bridge) dispatch(args []js.Value) (any, error) {
	var cmd timeline.Command
	if err := json.Unmarshal([]byte(argString(args, 0)), &cmd); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	snap, err := b.engine.Dispatch(context.Background(), cmd)
	if err != nil {
		return nil, err
	}
	return toJSON(snap)
}

func (b *bridge) tracks(args []js.Value) (any, error) {
	return toJSON(b.engine.Snapshot())
}

// onFrame subscribes a JS callback and returns a function that unsubscribes
// it. Frames arrive while the engine lock is held, so the callback runs from
// a microtask where it may call back into the engine; only the newest pending
// frame is delivered.
func (b *bridge) onFrame(args []js.Value) (any, error) {
	if len(args) == 0 || args[0].Type() != js.TypeFunction {
		return nil, fmt.Errorf("onFrame: callback required")
	}
	cb := args[0]

	var (
		mu        sync.Mutex
		pending   []byte
		scheduled bool
		stopped   bool
	)
	var flush js.Func
	flush = js.FuncOf(func(this js.Value, args []js.Value) any {
		mu.Lock()
		data := pending
		pending, scheduled = nil, false
		done := stopped
		mu.Unlock()
		if done {
			flush.Release()
			return nil
		}
		if data != nil {
			cb.Invoke(js.Global().Get("JSON").Call("parse", string(data)))
		}
		return nil
	})

	unsubscribe := b.engine.Subscribe(timeline.FrameSinkFunc(func(src timeline.PreviewSource) {
		data, err := json.Marshal(src)
		if err != nil {
			return
		}
		mu.Lock()
		pending = data
		schedule := !scheduled && !stopped
		scheduled = true
		mu.Unlock()
		if schedule {
			js.Global().Call("queueMicrotask", flush)
		}
	}))

	var off js.Func
	off = js.FuncOf(func(this js.Value, args []js.Value) any {
		unsubscribe()
		mu.Lock()
		stopped = true
		queued := scheduled
		mu.Unlock()
		// A queued flush releases itself.
		if !queued {
			flush.Release()
		}
		off.Release()
		return nil
	})
	return off, nil
}

func (b *bridge) beginAssetDrag(args []js.Value) (any, error) {
	a, err := b.assets.DragAsset(context.Background(), argString(args, 0))
	if err != nil {
		return nil, err
	}
	return nil, b.engine.BeginAssetDrag(a)
}

func (b *bridge) beginClipDrag(args []js.Value) (any, error) {
	return nil, b.engine.BeginClipDrag(argString(args, 0), argFloat(args, 1))
}

func (b *bridge) dragOver(args []js.Value) (any, error) {
	b.engine.DragOver(timeline.MediaType(argString(args, 0)), argGeometry(args, 1))
	return nil, nil
}

func (b *bridge) drop(args []js.Value) (any, error) {
	return b.engine.Drop(timeline.MediaType(argString(args, 0)), argGeometry(args, 1)), nil
}

func (b *bridge) beginTrim(args []js.Value) (any, error) {
	return nil, b.engine.BeginTrim(argString(args, 0), timeline.Edge(argString(args, 1)))
}

func (b *bridge) updateTrim(args []js.Value) (any, error) {
	clip, ok := b.engine.UpdateTrim(argFloat(args, 0))
	if !ok {
		return nil, nil
	}
	return toJSON(clip)
}
