// Package channel implements the persistent, event-based connection between
// the chat client and the backend.
package channel

import (
	"context"
	"errors"
	"sync"
)

// ErrDisconnected is returned by Emit while no connection is established.
// Nothing is queued for later delivery.
var ErrDisconnected = errors.New("channel disconnected")

// Listener receives the raw JSON payload of an inbound event.
type Listener func(data []byte)

// Channel is a named-event connection.
type Channel interface {
	// On registers fn for event until the returned subscription is released.
	On(event string, fn Listener) *Subscription
	// Emit sends payload as event.
	Emit(ctx context.Context, event string, payload any) error
}

// Subscription is the handle of one registered listener.
type Subscription struct {
	once   sync.Once
	remove func()
}

// Unsubscribe removes the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.remove)
}

type registration struct {
	id uint64
	fn Listener
}

// Registry keeps the listeners of a channel, in registration order.
// The zero value is ready to use.
type Registry struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string][]registration
}

// On registers fn for event.
func (r *Registry) On(event string, fn Listener) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listeners == nil {
		r.listeners = make(map[string][]registration)
	}
	r.nextID++
	id := r.nextID
	r.listeners[event] = append(r.listeners[event], registration{id: id, fn: fn})

	return &Subscription{remove: func() { r.remove(event, id) }}
}

func (r *Registry) remove(event string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.listeners[event]
	for i, reg := range regs {
		if reg.id != id {
			continue
		}
		kept := make([]registration, 0, len(regs)-1)
		kept = append(kept, regs[:i]...)
		kept = append(kept, regs[i+1:]...)
		if len(kept) == 0 {
			delete(r.listeners, event)
		} else {
			r.listeners[event] = kept
		}
		return
	}
}

// Count returns how many listeners are registered for event.
func (r *Registry) Count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[event])
}

// Dispatch calls every listener of event with data and reports how many ran.
// Listeners run on the caller's goroutine, outside the registry lock.
func (r *Registry) Dispatch(event string, data []byte) int {
	r.mu.RLock()
	regs := r.listeners[event]
	r.mu.RUnlock()

	for _, reg := range regs {
		reg.fn(data)
	}
	return len(regs)
}
