package chatview

import (
	"sort"
	"sync"
)

// AuthEvent describes one auth state change from the external auth
// service.
type AuthEvent struct {
	SignedIn bool
	UserID   string
}

// AuthEvents is a small fan-out stream of auth state changes. Handlers
// are invoked synchronously, in subscription order, on the publishing
// goroutine.
type AuthEvents struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(AuthEvent)
}

// NewAuthEvents creates an empty auth event stream.
func NewAuthEvents() *AuthEvents {
	return &AuthEvents{handlers: make(map[int]func(AuthEvent))}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (a *AuthEvents) Subscribe(handler func(AuthEvent)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	a.nextID++
	a.handlers[id] = handler

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.handlers, id)
	}
}

// Publish delivers the event to all current subscribers.
func (a *AuthEvents) Publish(e AuthEvent) {
	a.mu.Lock()
	ids := make([]int, 0, len(a.handlers))
	for id := range a.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(AuthEvent), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, a.handlers[id])
	}
	a.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}
