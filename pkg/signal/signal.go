package signal

import "time"

// Signal is a single-shot, auto-resettable latch. A Set() that arrives
// before a Wait() is remembered; repeated Set() calls without an
// intervening Wait() coalesce into a single pending signal, because the
// backing channel has capacity 1 and a full channel simply drops further
// sends.
type Signal struct {
	ch chan struct{}
}

// New creates a ready-to-use Signal.
func New() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Set marks the event signalled. Safe to call from any goroutine, any
// number of times; only one pending signal is ever remembered.
func (s *Signal) Set() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks up to ms milliseconds (0 means infinite) and returns true iff
// the event was signalled during the wait. It consumes the pending signal,
// so the next Wait call blocks again until the next Set.
func (s *Signal) Wait(ms int) bool {
	if ms <= 0 {
		<-s.ch
		return true
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-s.ch:
		return true
	case <-timer.C:
		return false
	}
}
