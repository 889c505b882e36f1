package track

import "github.com/cuemby/mona/pkg/merrors"

// Runner is a unit of deferred work executed on a worker thread. It
// returns a non-nil *merrors.Error on failure; Mona never lets a panic
// cross a worker boundary; Run wraps foreign-looking code with its own
// recover where appropriate and surfaces failures as a returned error
// instead.
type Runner func() *merrors.Error

// Priority is a hint for the OS scheduler applied to a ThreadQueue's
// worker goroutine. Unsupported priorities fall back to PriorityNormal.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityLow
	PriorityHigh
)
