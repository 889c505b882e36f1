package iosocket

import (
	"sync"

	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/log"
	"github.com/cuemby/mona/pkg/merrors"
	"github.com/cuemby/mona/pkg/socket"
	"github.com/cuemby/mona/pkg/track"
)

// DefaultReadBufferSize is used when IOSocket is constructed with a
// non-positive size.
const DefaultReadBufferSize = 64 * 1024

type registration struct {
	gen        uint32
	socket     *socket.Socket
	owner      *handler.Handler
	readTrack  uint16
	writeTrack uint16
}

// IOSocket is the readiness notifier. One instance typically serves an
// entire process; it fans readiness events out to a ThreadPool and posts
// completions back to each socket's owner Handler.
type IOSocket struct {
	poller poller

	mu      sync.Mutex
	regs    map[int]*registration
	nextGen uint32

	pool        *track.ThreadPool
	readBufSize int
}

// New creates an IOSocket backed by the platform's readiness notifier
// (epoll on Linux) and driving I/O runners through pool.
func New(pool *track.ThreadPool, readBufSize int) (*IOSocket, error) {
	if readBufSize <= 0 {
		readBufSize = DefaultReadBufferSize
	}
	p, err := newPoller()
	if err != nil {
		return nil, merrors.Wrap(merrors.System, err, "create readiness notifier")
	}
	io := &IOSocket{
		poller:      p,
		regs:        make(map[int]*registration),
		pool:        pool,
		readBufSize: readBufSize,
	}
	go io.run()
	return io, nil
}

// Register starts monitoring s for readability (always) and, once armed,
// writability. s is delivered completions on owner's queue. A zero
// readTrack/writeTrack is resolved to a concrete, stable track up front
// (via the pool's round-robin cursor) so every read or write event for
// this socket keeps pinning to the same worker, not just the first one.
func (io *IOSocket) Register(s *socket.Socket, owner *handler.Handler, readTrack, writeTrack uint16) error {
	fd := s.FD()
	if fd < 0 {
		return merrors.New(merrors.Argument, "register: socket has no descriptor")
	}

	if readTrack == 0 {
		readTrack = io.pool.Reserve()
	}
	if writeTrack == 0 {
		writeTrack = io.pool.Reserve()
	}

	io.mu.Lock()
	io.nextGen++
	reg := &registration{gen: io.nextGen, socket: s, owner: owner, readTrack: readTrack, writeTrack: writeTrack}
	io.regs[fd] = reg
	io.mu.Unlock()

	s.SetNotifier(io)
	s.SetTracks(readTrack, writeTrack)

	if err := io.poller.add(fd, false, reg.gen); err != nil {
		io.mu.Lock()
		delete(io.regs, fd)
		io.mu.Unlock()
		return merrors.Wrap(merrors.System, err, "register fd %d", fd)
	}
	return nil
}

// ArmWrite requests a writability notification for s. Implements
// socket.Notifier.
func (io *IOSocket) ArmWrite(s *socket.Socket) error {
	fd := s.FD()
	io.mu.Lock()
	reg, ok := io.regs[fd]
	io.mu.Unlock()
	if !ok {
		return merrors.New(merrors.Intern, "arm write: fd %d not registered", fd)
	}
	return io.poller.modify(fd, true, reg.gen)
}

// Deregister stops monitoring s. Implements socket.Notifier.
func (io *IOSocket) Deregister(s *socket.Socket) {
	fd := s.FD()
	io.mu.Lock()
	delete(io.regs, fd)
	io.mu.Unlock()
	_ = io.poller.remove(fd)
}

// Close stops the selector and releases the underlying notifier
// descriptor. Registered sockets are not closed; callers should close
// them independently.
func (io *IOSocket) Close() error {
	return io.poller.close()
}

func (io *IOSocket) lookup(fd int) (*registration, bool) {
	io.mu.Lock()
	defer io.mu.Unlock()
	reg, ok := io.regs[fd]
	return reg, ok
}

func (io *IOSocket) run() {
	for {
		evs, err := io.poller.wait()
		if err != nil {
			if err == errPollerClosed {
				return
			}
			log.Errorf("iosocket: poll: %v", err)
			continue
		}
		for _, ev := range evs {
			io.dispatch(ev)
		}
	}
}

func (io *IOSocket) dispatch(ev readyEvent) {
	reg, ok := io.lookup(ev.fd)
	if !ok {
		return
	}
	if reg.gen != ev.gen {
		// fd was closed and reused for a different registration between
		// the kernel reporting this readiness and us processing it; the
		// event belongs to whatever held the fd before, not reg.
		return
	}

	if ev.hup || ev.err {
		io.submitDisconnect(reg)
		return
	}
	if ev.readable {
		io.submitRead(reg)
	}
	if ev.writable {
		io.submitWrite(reg)
	}
}

func (io *IOSocket) submitRead(reg *registration) {
	readTrack := reg.readTrack
	reg.socket.Retain()
	_ = io.pool.Queue(&readTrack, func() *merrors.Error {
		defer reg.socket.Release()
		for {
			buf, eof, err := reg.socket.ReadOnce(io.readBufSize)
			if err != nil {
				io.postError(reg, err)
				return nil
			}
			if eof {
				io.postDisconnect(reg)
				return nil
			}
			if len(buf) == 0 {
				return nil
			}
			io.postReceived(reg, buf)
			if len(buf) < io.readBufSize {
				return nil
			}
		}
	}, nil)
}

func (io *IOSocket) submitWrite(reg *registration) {
	writeTrack := reg.writeTrack
	reg.socket.Retain()
	_ = io.pool.Queue(&writeTrack, func() *merrors.Error {
		defer reg.socket.Release()

		if reg.socket.State() == socket.StateConnecting {
			if err := reg.socket.CompleteConnect(); err != nil {
				return nil
			}
			return nil
		}

		_, remaining, err := reg.socket.Drain()
		if err != nil {
			merr := merrors.Wrap(merrors.Network, err, "write")
			io.postOwnerAction(reg, func() { reg.socket.OnError.Raise(merr) })
			return nil
		}
		if remaining == 0 {
			_ = io.poller.modify(reg.socket.FD(), false, reg.gen)
			io.postOwnerAction(reg, reg.socket.MarkFlushed)
		}
		return nil
	}, nil)
}

func (io *IOSocket) submitDisconnect(reg *registration) {
	io.postDisconnect(reg)
}

func (io *IOSocket) postReceived(reg *registration, buf []byte) {
	io.postOwnerAction(reg, func() { reg.socket.Deliver(buf) })
}

func (io *IOSocket) postDisconnect(reg *registration) {
	io.postOwnerAction(reg, reg.socket.Disconnected)
}

func (io *IOSocket) postError(reg *registration, err *merrors.Error) {
	io.postOwnerAction(reg, func() { reg.socket.OnError.Raise(err) })
}

func (io *IOSocket) postOwnerAction(reg *registration, fn func()) {
	if reg.owner == nil {
		fn()
		return
	}
	reg.owner.Queue(handler.ActionFunc(fn))
}
