package authclient

import "sync"

type listenerEntry struct {
	id uint64
	fn func()
}

// UnauthorizedBus carries the payload-less "unauthorized" signal from the
// transport layer to the session provider. Emit delivers synchronously to
// every listener registered at the time of the call.
type UnauthorizedBus struct {
	mu        sync.RWMutex
	listeners []listenerEntry
	nextID    uint64
}

// NewUnauthorizedBus returns an empty bus
func NewUnauthorizedBus() *UnauthorizedBus {
	return &UnauthorizedBus{}
}

// Subscribe registers fn. The returned func removes it and is idempotent.
func (b *UnauthorizedBus) Subscribe(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listenerEntry{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, l := range b.listeners {
				if l.id == id {
					b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit broadcasts one signal
func (b *UnauthorizedBus) Emit() {
	b.mu.RLock()
	listeners := make([]listenerEntry, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		l.fn()
	}
}

// Listeners returns the number of registered listeners
func (b *UnauthorizedBus) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
