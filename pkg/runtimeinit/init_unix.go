//go:build unix

package runtimeinit

import (
	"os/signal"
	"sync"
	"syscall"
)

var once sync.Once

// IgnoreSIGPIPE installs SIG_IGN for SIGPIPE once per process. Safe to
// call from multiple goroutines or multiple times; only the first call
// does anything.
func IgnoreSIGPIPE() {
	once.Do(func() {
		signal.Ignore(syscall.SIGPIPE)
	})
}
