//go:build unix

package socket

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// newRawSocket creates a non-blocking TCP socket of the given family
// (unix.AF_INET or unix.AF_INET6).
func newRawSocket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// resolveSockaddr turns "host:port" into a unix.Sockaddr (returned as any
// so the package-level signature matches the non-unix build stub) and
// reports which address family it belongs to.
func resolveSockaddr(addr string) (any, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, 0, err
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, 0, err
	}
	ip := ips[0]

	if ip4 := ip.To4(); ip4 != nil {
		var sa unix.SockaddrInet4
		sa.Port = port
		copy(sa.Addr[:], ip4)
		return &sa, unix.AF_INET, nil
	}

	var sa unix.SockaddrInet6
	sa.Port = port
	copy(sa.Addr[:], ip.To16())
	return &sa, unix.AF_INET6, nil
}

// rawConnect issues a non-blocking connect. A nil, true return means the
// connect is in progress (EINPROGRESS); a nil, false return means it
// completed synchronously (rare, but possible for loopback).
func rawConnect(fd int, sa any) (inProgress bool, err error) {
	err = unix.Connect(fd, sa.(unix.Sockaddr))
	if err == nil {
		return false, nil
	}
	if err == unix.EINPROGRESS {
		return true, nil
	}
	return false, err
}

// rawConnectError reads SO_ERROR after a writable readiness event fires
// for a connecting socket, which is how a failed non-blocking connect is
// actually observed.
func rawConnectError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func rawRead(fd int, buf []byte) (n int, eof bool, err error) {
	n, err = unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, false, nil
		}
		return 0, false, err
	}
	if n == 0 {
		return 0, true, nil
	}
	return n, false, nil
}

func rawWrite(fd int, buf []byte) (n int, err error) {
	n, err = unix.Write(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func rawShutdown(fd int, how int) error {
	return unix.Shutdown(fd, how)
}

func rawClose(fd int) error {
	return unix.Close(fd)
}

func rawPeerAddr(fd int) net.Addr {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil
	}
	return sockaddrToNetAddr(sa)
}

func rawLocalAddr(fd int) net.Addr {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil
	}
	return sockaddrToNetAddr(sa)
}

func sockaddrToNetAddr(sa unix.Sockaddr) net.Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	default:
		return nil
	}
}
