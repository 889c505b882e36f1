//go:build !unix

package socket

import (
	"errors"
	"net"
)

// This build has no raw non-blocking socket support; every low-level
// operation reports errUnsupported. Mona's non-blocking socket layer, like
// the original, targets POSIX platforms (epoll/kqueue); Windows support
// would need an IOCP-backed notifier, out of scope here.

var errUnsupported = errors.New("socket: raw non-blocking sockets unsupported on this platform")

func newRawSocket(family int) (int, error) { return -1, errUnsupported }

func resolveSockaddr(addr string) (any, int, error) {
	return nil, 0, errUnsupported
}

func rawConnect(fd int, sa any) (bool, error) { return false, errUnsupported }

func rawConnectError(fd int) error { return errUnsupported }

func rawRead(fd int, buf []byte) (int, bool, error) { return 0, false, errUnsupported }

func rawWrite(fd int, buf []byte) (int, error) { return 0, errUnsupported }

func rawShutdown(fd int, how int) error { return errUnsupported }

func rawClose(fd int) error { return errUnsupported }

func rawPeerAddr(fd int) net.Addr { return nil }

func rawLocalAddr(fd int) net.Addr { return nil }
