package socket

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cuemby/mona/pkg/bus"
	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/merrors"
	"github.com/cuemby/mona/pkg/metrics"
)

// State is the lifecycle of a Socket's underlying descriptor.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateClosed
)

// Decoder pre-processes inbound bytes before OnReceived is raised. Deliver
// runs it on the owner Handler thread, not on the worker thread that read
// the bytes. It may return a transformed buffer for normal delivery, or
// captured=true to suppress delivery entirely (the bytes were consumed by
// the decoder itself, e.g. buffered awaiting a complete TLS record).
type Decoder interface {
	Decode(buf []byte) (out []byte, captured bool)
}

// Notifier is implemented by package iosocket. A Socket asks its notifier
// to arm the next readiness edge; it never polls directly.
type Notifier interface {
	ArmWrite(s *Socket) error
	Deregister(s *Socket)
}

// Socket is Mona's non-blocking socket wrapper. Every operation returns
// immediately; actual syscalls happen on a worker thread chosen by
// ReadTrack/WriteTrack (see package iosocket).
type Socket struct {
	id string
	fd atomic.Int32 // -1 once closed

	family int
	peer   net.Addr
	local  net.Addr

	sendMu   sync.Mutex
	sendBuf  []byte
	queueing atomic.Int64
	flushing atomic.Bool

	decoder    Decoder
	readTrack  uint16
	writeTrack uint16
	owner      *handler.Handler
	notifier   Notifier

	state atomic.Int32

	errMu   sync.Mutex
	lastErr *merrors.Error

	refs           atomic.Int64
	closeRequested atomic.Bool

	connectTimer *metrics.Timer

	OnReceived      bus.Event[[]byte]
	OnFlush         bus.Event[struct{}]
	OnDisconnection bus.Event[net.Addr]
	OnAccept        bus.Event[*Socket]
	OnError         bus.Event[*merrors.Error]
}

// New creates an unconnected Socket with no descriptor yet. Connect
// creates the non-blocking TCP descriptor, of the family (AF_INET or
// AF_INET6) that the address resolves to.
func New(owner *handler.Handler) *Socket {
	s := &Socket{
		id:    uuid.NewString(),
		owner: owner,
	}
	s.fd.Store(-1)
	return s
}

// FromFD wraps an already-connected descriptor (used by a TCP listener's
// accept path). The socket starts in StateConnected.
func FromFD(owner *handler.Handler, fd int, peer, local net.Addr) *Socket {
	s := &Socket{
		id:    uuid.NewString(),
		owner: owner,
		peer:  peer,
		local: local,
	}
	s.fd.Store(int32(fd))
	s.state.Store(int32(StateConnected))
	metrics.SocketsConnected.Inc()
	return s
}

// ID returns the subject's identity, used for logging and metrics labels.
func (s *Socket) ID() string { return s.id }

// FD returns the raw descriptor, or -1 if the socket has no descriptor
// yet or has been closed. Package iosocket uses this to register/
// deregister with the OS notifier; application code should not need it.
func (s *Socket) FD() int { return int(s.fd.Load()) }

// State reports the current connection state.
func (s *Socket) State() State { return State(s.state.Load()) }

// Peer reports the remote address, if known.
func (s *Socket) Peer() net.Addr { return s.peer }

// Local reports the local address, if known.
func (s *Socket) Local() net.Addr { return s.local }

// Queueing reports the number of bytes enqueued by Write but not yet
// handed to the OS successfully. It is accurate at any instant: Write
// increments it, the writer decrements it after a successful syscall.
func (s *Socket) Queueing() int64 { return s.queueing.Load() }

// SetDecoder installs a per-subject decoder that Deliver runs on the owner
// Handler thread before OnReceived is raised. Installing nil restores
// pass-through delivery.
func (s *Socket) SetDecoder(d Decoder) { s.decoder = d }

// SetNotifier attaches the OS readiness notifier. Called by
// iosocket.Register; application code does not call this directly.
func (s *Socket) SetNotifier(n Notifier) { s.notifier = n }

// SetTracks pins the socket's read and write workers. Called by
// iosocket.Register.
func (s *Socket) SetTracks(readTrack, writeTrack uint16) {
	s.readTrack = readTrack
	s.writeTrack = writeTrack
}

// Tracks reports the socket's pinned read and write tracks.
func (s *Socket) Tracks() (read, write uint16) { return s.readTrack, s.writeTrack }

// LastError reports the most recently recorded failure, or nil.
func (s *Socket) LastError() *merrors.Error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

func (s *Socket) recordError(err *merrors.Error) {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
	s.OnError.Raise(err)
}

// Retain increments the in-flight runner count, keeping the socket alive
// (its descriptor will not be closed) until a matching Release is called.
// Runners call this before they start and Release when they finish, so a
// descriptor cannot close mid-syscall.
func (s *Socket) Retain() { s.refs.Add(1) }

// Release decrements the in-flight runner count. If Close was requested
// and this was the last outstanding runner, the descriptor is closed now.
func (s *Socket) Release() {
	if s.refs.Add(-1) == 0 && s.closeRequested.Load() {
		s.closeNow()
	}
}

// Connect issues a non-blocking connect to addr ("host:port"). It returns
// immediately; completion is delivered via the owner Handler as OnFlush
// (connected) or OnError. Connect is a no-op if the socket is already
// connecting or connected.
func (s *Socket) Connect(addr string) *merrors.Error {
	if State(s.state.Load()) == StateConnecting || State(s.state.Load()) == StateConnected {
		return nil
	}

	sa, family, err := resolveSockaddr(addr)
	if err != nil {
		return merrors.Wrap(merrors.Argument, err, "resolve %s", addr)
	}
	s.family = family

	fd, err := newRawSocket(family)
	if err != nil {
		return merrors.Wrap(merrors.System, err, "create socket")
	}
	s.fd.Store(int32(fd))
	s.state.Store(int32(StateConnecting))
	s.connectTimer = metrics.NewTimer()

	_, err = rawConnect(fd, sa)
	if err != nil {
		merr := merrors.Wrap(merrors.Network, err, "connect %s", addr)
		s.recordError(merr)
		return merr
	}

	if s.notifier != nil {
		if err := s.notifier.ArmWrite(s); err != nil {
			merr := merrors.Wrap(merrors.System, err, "arm writable for connect")
			s.recordError(merr)
			return merr
		}
	}
	return nil
}

// CompleteConnect is called by iosocket once the connect-in-progress
// socket becomes writable, the POSIX signal that a non-blocking connect
// finished (successfully or not). The resulting OnFlush or OnError is
// raised through the owner Handler, since this runs on a worker.
func (s *Socket) CompleteConnect() *merrors.Error {
	if err := rawConnectError(int(s.fd.Load())); err != nil {
		merr := merrors.Wrap(merrors.Network, err, "connect failed")
		s.state.Store(int32(StateDisconnected))
		if s.owner == nil {
			s.recordError(merr)
		} else {
			s.owner.Queue(handler.ActionFunc(func() { s.recordError(merr) }))
		}
		return merr
	}
	s.peer = rawPeerAddr(int(s.fd.Load()))
	s.local = rawLocalAddr(int(s.fd.Load()))
	s.state.Store(int32(StateConnected))
	metrics.SocketsConnected.Inc()
	if s.connectTimer != nil {
		s.connectTimer.ObserveDuration(metrics.SocketConnectDuration)
		s.connectTimer = nil
	}
	if s.owner == nil {
		s.OnFlush.Raise(struct{}{})
	} else {
		s.owner.Queue(handler.ActionFunc(func() { s.OnFlush.Raise(struct{}{}) }))
	}
	return nil
}

// Write appends data to the send buffer and arms writable readiness if
// the socket isn't already flushing. It never blocks, and always
// succeeds at the enqueue level: back-pressure is the caller's
// responsibility, observed via Queueing().
func (s *Socket) Write(data []byte) (int, *merrors.Error) {
	if State(s.state.Load()) != StateConnected {
		return 0, merrors.New(merrors.Intern, "socket %s: write while not connected", s.id)
	}

	s.sendMu.Lock()
	s.sendBuf = append(s.sendBuf, data...)
	s.sendMu.Unlock()
	s.queueing.Add(int64(len(data)))
	metrics.SocketQueueingBytes.WithLabelValues(s.id).Set(float64(s.queueing.Load()))

	if s.flushing.CompareAndSwap(false, true) {
		if s.notifier != nil {
			if err := s.notifier.ArmWrite(s); err != nil {
				s.flushing.Store(false)
				merr := merrors.Wrap(merrors.System, err, "arm writable")
				s.recordError(merr)
				return 0, merr
			}
		}
	}
	return len(data), nil
}

// Drain is called by iosocket's write runner. It performs the syscall for
// whatever is currently buffered, decrements Queueing by however many
// bytes were actually sent, and reports how many bytes remain buffered.
func (s *Socket) Drain() (sent int, remaining int, err error) {
	s.sendMu.Lock()
	buf := s.sendBuf
	s.sendMu.Unlock()

	if len(buf) == 0 {
		return 0, 0, nil
	}

	n, werr := rawWrite(int(s.fd.Load()), buf)
	if werr != nil {
		return 0, len(buf), werr
	}

	s.sendMu.Lock()
	s.sendBuf = s.sendBuf[n:]
	remaining = len(s.sendBuf)
	s.sendMu.Unlock()

	s.DecrementQueueing(n)
	return n, remaining, nil
}

// MarkFlushed clears the flushing flag and raises OnFlush once the send
// buffer has fully drained. Called by iosocket's write runner.
func (s *Socket) MarkFlushed() {
	s.flushing.Store(false)
	s.OnFlush.Raise(struct{}{})
}

// DecrementQueueing is called by iosocket's write runner after each
// successful syscall write.
func (s *Socket) DecrementQueueing(n int) {
	s.queueing.Add(-int64(n))
	metrics.SocketQueueingBytes.WithLabelValues(s.id).Set(float64(s.queueing.Load()))
}

// rawRead is exposed to iosocket's read runner via ReadOnce.
func (s *Socket) ReadOnce(bufSize int) (buf []byte, eof bool, err *merrors.Error) {
	tmp := make([]byte, bufSize)
	n, isEOF, rerr := rawRead(int(s.fd.Load()), tmp)
	if rerr != nil {
		return nil, false, merrors.Wrap(merrors.Network, rerr, "read")
	}
	if isEOF {
		return nil, true, nil
	}
	return tmp[:n], false, nil
}

// Deliver hands a freshly read buffer through the decoder (if any) and
// raises OnReceived unless the decoder captured it.
func (s *Socket) Deliver(buf []byte) {
	if s.decoder != nil {
		out, captured := s.decoder.Decode(buf)
		if captured {
			return
		}
		buf = out
	}
	if len(buf) > 0 {
		s.OnReceived.Raise(buf)
	}
}

// Shutdown half-closes the socket per how (unix.SHUT_RD/WR/RDWR). Pending
// writes still flush before the FIN is sent, since Shutdown does not
// touch the send buffer.
func (s *Socket) Shutdown(how int) *merrors.Error {
	if err := rawShutdown(int(s.fd.Load()), how); err != nil {
		return merrors.Wrap(merrors.Network, err, "shutdown")
	}
	return nil
}

// Disconnected is called by iosocket when the peer closes or resets the
// connection. It raises OnDisconnection only if the socket was not
// already disconnected or closed.
func (s *Socket) Disconnected() {
	prev := State(s.state.Load())
	for prev != StateDisconnected && prev != StateClosed {
		if s.state.CompareAndSwap(int32(prev), int32(StateDisconnected)) {
			break
		}
		prev = State(s.state.Load())
	}
	if prev == StateConnected {
		metrics.SocketsConnected.Dec()
	}
	if s.notifier != nil {
		s.notifier.Deregister(s)
	}
	if prev == StateDisconnected || prev == StateClosed {
		return
	}
	s.OnDisconnection.Raise(s.peer)
}

// Close releases the descriptor once every in-flight runner has finished.
// Safe to call more than once.
func (s *Socket) Close() *merrors.Error {
	if !s.closeRequested.CompareAndSwap(false, true) {
		return nil
	}
	if s.notifier != nil {
		s.notifier.Deregister(s)
	}
	if s.refs.Load() == 0 {
		s.closeNow()
	}
	return nil
}

func (s *Socket) closeNow() {
	fd := s.fd.Swap(-1)
	if fd < 0 {
		return
	}
	_ = rawClose(int(fd))
	wasConnected := State(s.state.Swap(int32(StateClosed))) == StateConnected
	if wasConnected {
		metrics.SocketsConnected.Dec()
	}
	metrics.SocketQueueingBytes.DeleteLabelValues(s.id)
	if wasConnected {
		s.postDisconnection()
	}
}

// postDisconnection raises OnDisconnection for a locally-initiated close,
// the counterpart to Disconnected raising it for a peer-initiated one.
// Both gate on the same atomic transition away from StateConnected, so
// whichever happens first is the one that fires; it is routed through the
// owner Handler since Close/Release may run on an arbitrary caller or
// worker goroutine, never the owner thread itself.
func (s *Socket) postDisconnection() {
	peer := s.peer
	if s.owner == nil {
		s.OnDisconnection.Raise(peer)
		return
	}
	s.owner.Queue(handler.ActionFunc(func() { s.OnDisconnection.Raise(peer) }))
}
