//go:build linux

package iosocket

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux readiness notifier: a real epoll_create1/
// epoll_ctl/epoll_wait loop, not a portable abstraction layered on top.
type epollPoller struct {
	fd int

	mu     sync.Mutex
	closed bool
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{fd: fd}, nil
}

func (p *epollPoller) eventMask(writable bool) uint32 {
	mask := uint32(unix.EPOLLIN | unix.EPOLLRDHUP)
	if writable {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func (p *epollPoller) add(fd int, writable bool, gen uint32) error {
	ev := unix.EpollEvent{Events: p.eventMask(writable), Fd: int32(fd), Pad: int32(gen)}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) modify(fd int, writable bool, gen uint32) error {
	ev := unix.EpollEvent{Events: p.eventMask(writable), Fd: int32(fd), Pad: int32(gen)}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) remove(fd int) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) wait() ([]readyEvent, error) {
	raw := make([]unix.EpollEvent, 128)
	for {
		n, err := unix.EpollWait(p.fd, raw, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			p.mu.Lock()
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return nil, errPollerClosed
			}
			return nil, err
		}
		out := make([]readyEvent, 0, n)
		for i := 0; i < n; i++ {
			e := raw[i]
			out = append(out, readyEvent{
				fd:       int(e.Fd),
				gen:      uint32(e.Pad),
				readable: e.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
				writable: e.Events&unix.EPOLLOUT != 0,
				hup:      e.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
				err:      e.Events&unix.EPOLLERR != 0,
			})
		}
		return out, nil
	}
}

func (p *epollPoller) close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return unix.Close(p.fd)
}
