package iosocket

import "errors"

// readyEvent is one fd's worth of readiness reported by a wait() call. gen
// is the generation the fd was added (or last modified) under, carried by
// the underlying notifier so a stale event against a since-reused fd can be
// told apart from a current one.
type readyEvent struct {
	fd       int
	gen      uint32
	readable bool
	writable bool
	hup      bool
	err      bool
}

// poller is the OS-specific readiness notifier. Implementations live in
// poller_linux.go (epoll), poller_poll.go (poll(2), other unix) and
// poller_other.go (unsupported platforms). gen is opaque to the poller; it
// is echoed back on every readyEvent for that fd so the caller can reject
// events that outlived the registration that armed them.
type poller interface {
	add(fd int, writable bool, gen uint32) error
	modify(fd int, writable bool, gen uint32) error
	remove(fd int) error
	wait() ([]readyEvent, error)
	close() error
}

// errPollerClosed is returned by wait() once close() has been called, so
// the selector goroutine can exit cleanly instead of logging a spurious
// error.
var errPollerClosed = errors.New("iosocket: poller closed")
