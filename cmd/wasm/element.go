//go:build js && wasm

package main

import (
	"errors"
	"fmt"
	"syscall/js"
)

// htmlMedia adapts an HTMLMediaElement to timeline.MediaElement.
type htmlMedia struct {
	el js.Value
}

func newHTMLMedia(el js.Value) *htmlMedia {
	el.Set("preload", "auto")
	return &htmlMedia{el: el}
}

func (m *htmlMedia) Load(url string) <-chan error {
	ch := make(chan error, 1)
	var onReady, onError js.Func
	release := func() {
		m.el.Call("removeEventListener", "loadedmetadata", onReady)
		m.el.Call("removeEventListener", "error", onError)
		onReady.Release()
		onError.Release()
	}
	onReady = js.FuncOf(func(this js.Value, args []js.Value) any {
		release()
		ch <- nil
		return nil
	})
	onError = js.FuncOf(func(this js.Value, args []js.Value) any {
		release()
		ch <- mediaError(m.el)
		return nil
	})
	m.el.Call("addEventListener", "loadedmetadata", onReady)
	m.el.Call("addEventListener", "error", onError)
	m.el.Set("src", url)
	m.el.Call("load")
	return ch
}

func (m *htmlMedia) CurrentTime() float64 {
	return m.el.Get("currentTime").Float()
}

func (m *htmlMedia) SetCurrentTime(t float64) {
	m.el.Set("currentTime", t)
}

// Play forwards the element's play promise.
func (m *htmlMedia) Play() <-chan error {
	p := m.el.Call("play")
	if p.IsUndefined() || p.IsNull() {
		return nil
	}
	ch := make(chan error, 1)
	var onOK, onFail js.Func
	onOK = js.FuncOf(func(this js.Value, args []js.Value) any {
		onOK.Release()
		onFail.Release()
		ch <- nil
		return nil
	})
	onFail = js.FuncOf(func(this js.Value, args []js.Value) any {
		onOK.Release()
		onFail.Release()
		reason := "play rejected"
		if len(args) > 0 && !args[0].IsUndefined() {
			reason = args[0].Call("toString").String()
		}
		ch <- errors.New(reason)
		return nil
	})
	p.Call("then", onOK, onFail)
	return ch
}

func (m *htmlMedia) Pause() {
	m.el.Call("pause")
}

func (m *htmlMedia) Paused() bool {
	return m.el.Get("paused").Bool()
}

func (m *htmlMedia) SetMuted(muted bool) {
	m.el.Set("muted", muted)
}

func mediaError(el js.Value) error {
	e := el.Get("error")
	if e.IsNull() || e.IsUndefined() {
		return errors.New("media failed to load")
	}
	return fmt.Errorf("media error %d: %s", e.Get("code").Int(), e.Get("message").String())
}
