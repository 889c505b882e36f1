//go:build unix

package track

import (
	"golang.org/x/sys/unix"

	"github.com/cuemby/mona/pkg/log"
)

// applyPriority sets the calling (locked) OS thread's nice value where the
// platform supports it, falling back to normal priority on failure.
func applyPriority(p Priority) {
	var nice int
	switch p {
	case PriorityLow:
		nice = 10
	case PriorityHigh:
		nice = -10
	default:
		return
	}

	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, nice); err != nil {
		log.Logger.Debug().Err(err).Msg("track: priority unsupported, falling back to normal")
	}
}
