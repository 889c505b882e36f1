package handler

import (
	"sync"

	"github.com/cuemby/mona/pkg/log"
	"github.com/cuemby/mona/pkg/signal"
)

// Action is a unit of deferred work queued onto a Handler. Run is invoked
// at most once, on the Handler's owner thread. An Action is expected to
// handle its own recoverable failures internally (for example, a
// completion that failed should raise the relevant subject's OnError
// itself); Handler only guards against an Action panicking outright.
type Action interface {
	Run()
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func()

// Run implements Action.
func (f ActionFunc) Run() { f() }

// Handler is an MPSC queue of Actions bound to one owner thread. Producers
// on any goroutine call Queue; only the owner goroutine may call Flush or
// Wait.
type Handler struct {
	mu       sync.Mutex
	queue    []Action
	draining bool
	wake     *signal.Signal
}

// New creates a ready-to-use Handler.
func New() *Handler {
	return &Handler{wake: signal.New()}
}

// Queue appends action to the tail of the queue and wakes the owner
// thread. Safe to call from any goroutine.
func (h *Handler) Queue(action Action) {
	h.mu.Lock()
	h.queue = append(h.queue, action)
	h.mu.Unlock()
	h.wake.Set()
}

// Wait blocks up to ms milliseconds (0 means infinite) for Queue to wake
// this Handler. Must only be called by the owner thread.
func (h *Handler) Wait(ms int) bool {
	return h.wake.Wait(ms)
}

// Pending reports the number of actions currently queued, for diagnostics
// and metrics; it is a snapshot and may be stale by the time it returns.
func (h *Handler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Flush drains the queue, invoking each Action exactly once in enqueue
// order. Must only be called by the owner thread. If an Action queued
// during this call calls Flush again (directly or indirectly), the nested
// call is a no-op: this outer call re-checks the queue tail after each
// batch and will run whatever was enqueued meanwhile itself.
func (h *Handler) Flush() {
	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		return
	}
	h.draining = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.draining = false
		h.mu.Unlock()
	}()

	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		batch := h.queue
		h.queue = nil
		h.mu.Unlock()

		for _, action := range batch {
			h.runOne(action)
		}
	}
}

func (h *Handler) runOne(action Action) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Error().Interface("panic", r).Msg("handler: action panicked, dropping")
		}
	}()
	action.Run()
}
