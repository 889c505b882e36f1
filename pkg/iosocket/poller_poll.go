//go:build unix && !linux

package iosocket

import (
	"sync"

	"golang.org/x/sys/unix"
)

// pollPoller backs non-Linux unix platforms (Darwin, BSD) with poll(2).
// It is a real syscall loop, not a stub, but re-scans its fd set on every
// wait() call rather than maintaining kernel-side interest like epoll or
// kqueue would; adequate for the socket counts this runtime targets.
type wantedFd struct {
	writable bool
	gen      uint32
}

type pollPoller struct {
	mu     sync.Mutex
	wanted map[int]wantedFd
	closed bool
}

func newPoller() (poller, error) {
	return &pollPoller{wanted: make(map[int]wantedFd)}, nil
}

func (p *pollPoller) add(fd int, writable bool, gen uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wanted[fd] = wantedFd{writable: writable, gen: gen}
	return nil
}

func (p *pollPoller) modify(fd int, writable bool, gen uint32) error {
	return p.add(fd, writable, gen)
}

func (p *pollPoller) remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.wanted, fd)
	return nil
}

func (p *pollPoller) wait() ([]readyEvent, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, errPollerClosed
		}
		fds := make([]unix.PollFd, 0, len(p.wanted))
		gens := make(map[int]uint32, len(p.wanted))
		for fd, w := range p.wanted {
			events := int16(unix.POLLIN)
			if w.writable {
				events |= unix.POLLOUT
			}
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
			gens[fd] = w.gen
		}
		p.mu.Unlock()

		if len(fds) == 0 {
			// Nothing registered yet; avoid a tight spin.
			if _, err := unix.Poll(nil, 100); err != nil && err != unix.EINTR {
				return nil, err
			}
			continue
		}

		n, err := unix.Poll(fds, 1000)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}

		out := make([]readyEvent, 0, n)
		for _, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}
			out = append(out, readyEvent{
				fd:       int(pfd.Fd),
				gen:      gens[int(pfd.Fd)],
				readable: pfd.Revents&unix.POLLIN != 0,
				writable: pfd.Revents&unix.POLLOUT != 0,
				hup:      pfd.Revents&unix.POLLHUP != 0,
				err:      pfd.Revents&unix.POLLERR != 0,
			})
		}
		if len(out) > 0 {
			return out, nil
		}
	}
}

func (p *pollPoller) close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
