//go:build unix

package main

import "golang.org/x/sys/unix"

// dupNonblocking duplicates fd and puts the copy in non-blocking mode,
// for handing an accepted net.Conn's descriptor to socket.FromFD without
// net.Conn's finalizer closing out from under the runtime's own Socket.
func dupNonblocking(fd int) (int, error) {
	newFD, err := unix.Dup(fd)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(newFD, true); err != nil {
		_ = unix.Close(newFD)
		return -1, err
	}
	return newFD, nil
}
