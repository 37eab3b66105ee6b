//go:build js && wasm

package main

import "syscall/js"

// rafScheduler ticks the timeline once per animation frame.
type rafScheduler struct {
	id    js.Value
	frame js.Func
	tick  func() bool
	gen   int
}

func (s *rafScheduler) Start(tick func() bool) {
	if s.tick != nil {
		return
	}
	s.gen++
	gen := s.gen
	s.tick = tick
	s.frame = js.FuncOf(func(this js.Value, args []js.Value) any {
		if s.tick == nil || s.gen != gen {
			return nil
		}
		more := s.tick()
		if s.tick == nil || s.gen != gen {
			// stopped, or stopped and restarted, from inside the tick
			return nil
		}
		if !more {
			s.clear()
			return nil
		}
		s.id = js.Global().Call("requestAnimationFrame", s.frame)
		return nil
	})
	s.id = js.Global().Call("requestAnimationFrame", s.frame)
}

func (s *rafScheduler) Stop() {
	if s.tick == nil {
		return
	}
	js.Global().Call("cancelAnimationFrame", s.id)
	s.clear()
}

func (s *rafScheduler) clear() {
	s.tick = nil
	s.frame.Release()
}
