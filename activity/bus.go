// Package activity turns user interaction signals into session activity and
// keeps a session's monitoring loop bound to the signed-in identity.
package activity

import (
	"sync"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
)

// Signal is one kind of user interaction.
type Signal string

const (
	SignalMouseDown  Signal = "mousedown"
	SignalMouseMove  Signal = "mousemove"
	SignalKeyPress   Signal = "keypress"
	SignalScroll     Signal = "scroll"
	SignalTouchStart Signal = "touchstart"
	SignalClick      Signal = "click"
)

// Signals lists every interaction that counts as activity.
var Signals = []Signal{
	SignalMouseDown,
	SignalMouseMove,
	SignalKeyPress,
	SignalScroll,
	SignalTouchStart,
	SignalClick,
}

func ParseSignal(s string) (Signal, error) {
	for _, sig := range Signals {
		if string(sig) == s {
			return sig, nil
		}
	}
	return "", errors.Wrapf(errors.ErrInvalidIdentifier, "unknown activity signal %q", s)
}

type Handler func(Signal)

// Bus fans signals out to subscribers in subscription order. Handlers run
// on the publishing goroutine without the bus lock held.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]Handler
	order    []uint64
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]Handler)}
}

// Subscribe adds h and returns a func that removes it. The returned func is
// safe to call more than once.
func (b *Bus) Subscribe(h Handler) func() {
	if h == nil {
		panic("activity: nil handler passed to Subscribe")
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, id)
	for i, candidate := range b.order {
		if candidate == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}

// Publish delivers sig to the handlers subscribed at the time of the call.
func (b *Bus) Publish(sig Signal) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(sig)
	}
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
