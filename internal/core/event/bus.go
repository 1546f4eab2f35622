package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during one tick sit in
// the back buffer until SwapBuffers moves them to the front, where
// DispatchAll delivers them in emission order.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []queued
	back     []queued
	handlers map[reflect.Type][]func(any)
}

type queued struct {
	typ reflect.Type
	ev  any
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]queued, 0, 32),
		back:     make([]queued, 0, 32),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Emit queues an event into the back buffer (delivered after the next swap).
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.back = append(b.back, queued{typ: t, ev: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers moves the back buffer to the front and starts an empty back
// buffer. Front events not yet dispatched are dropped.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers every front-buffer event to its handlers and returns
// how many events were delivered. Handlers may Emit; those events land in
// the back buffer.
func (b *Bus) DispatchAll() int {
	b.mu.Lock()
	handlers := make(map[reflect.Type][]func(any), len(b.handlers))
	for t, hs := range b.handlers {
		handlers[t] = hs
	}
	b.mu.Unlock()

	for _, q := range b.front {
		for _, h := range handlers[q.typ] {
			h(q.ev)
		}
	}
	n := len(b.front)
	b.front = b.front[:0]
	return n
}

// Pending returns the number of events waiting in the back buffer.
func (b *Bus) Pending() int { return len(b.back) }

// Flush swaps and dispatches until no events remain, so handlers that emit
// follow-up events see them delivered too. It gives up after maxRounds.
func (b *Bus) Flush(maxRounds int) int {
	total := 0
	for i := 0; i < maxRounds && b.Pending() > 0; i++ {
		b.SwapBuffers()
		total += b.DispatchAll()
	}
	return total
}
