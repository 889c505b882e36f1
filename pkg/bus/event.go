package bus

import "sync"

// Handle identifies a subscription so it can be detached later.
type Handle uint64

// Subscriber is invoked synchronously when an Event is raised. Returning
// true is the "stop" sentinel: Raise stops dispatching to any subscriber
// that follows in subscription order.
type Subscriber[T any] func(T) (stop bool)

type subscription[T any] struct {
	handle Handle
	fn     Subscriber[T]
}

// Event is a subscription list for one signature of a Subject's lifetime.
// The zero value is ready to use. An Event must not be copied after first
// use.
type Event[T any] struct {
	mu   sync.Mutex
	subs []subscription[T]
	next uint64
}

// Subscribe attaches fn, returning a Handle usable with Unsubscribe.
func (e *Event[T]) Subscribe(fn Subscriber[T]) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	h := Handle(e.next)
	e.subs = append(e.subs, subscription[T]{handle: h, fn: fn})
	return h
}

// Unsubscribe detaches the subscription identified by h. It is idempotent:
// detaching an already-detached or unknown handle is a no-op. Safe to call
// from inside a callback during Raise.
func (e *Event[T]) Unsubscribe(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.handle == h {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Raise invokes every subscriber registered at the time Raise was called,
// in subscription order, on the calling goroutine. Subscribers attached or
// detached during the raise do not affect this in-flight call because the
// subscriber list is snapshotted up front.
func (e *Event[T]) Raise(arg T) {
	e.mu.Lock()
	snapshot := make([]subscription[T], len(e.subs))
	copy(snapshot, e.subs)
	e.mu.Unlock()

	for _, s := range snapshot {
		if s.fn(arg) {
			return
		}
	}
}

// Count reports the number of live subscriptions, mainly for tests and
// diagnostics.
func (e *Event[T]) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
