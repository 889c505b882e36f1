package tcpclient

import (
	"crypto/tls"
	"net"
	"sync"

	"github.com/cuemby/mona/pkg/bus"
	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/iosocket"
	"github.com/cuemby/mona/pkg/merrors"
	"github.com/cuemby/mona/pkg/socket"
	"github.com/cuemby/mona/pkg/track"
)

// State mirrors socket.State but only the four values a TCPClient's
// consumers need to reason about.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

// OnDataFunc processes the assembled stream and reports how many bytes
// it consumed; unconsumed bytes become the next call's residual prefix.
type OnDataFunc func(buf []byte) (consumed int)

// TCPClient is a connection state machine plus a stream assembler on
// top of package socket. Transitions are driven by Socket events.
type TCPClient struct {
	io   *iosocket.IOSocket
	pool *track.ThreadPool
	owner *handler.Handler

	tlsConfig *tls.Config

	mu       sync.Mutex
	sock     *socket.Socket
	tls      *tlsAdapter
	addr     string
	state    State
	residual []byte

	sendingTrack uint16

	OnData          OnDataFunc
	OnFlush         bus.Event[struct{}]
	OnDisconnection bus.Event[net.Addr]
	OnError         bus.Event[*merrors.Error]
}

// New creates a TCPClient that registers its sockets with io and submits
// sends through pool. tlsConfig is optional; when set, every Connect
// installs TLS as the socket's decoder before any bytes move.
func New(io *iosocket.IOSocket, pool *track.ThreadPool, owner *handler.Handler, tlsConfig *tls.Config) *TCPClient {
	return &TCPClient{io: io, pool: pool, owner: owner, tlsConfig: tlsConfig}
}

// State reports the current connection state.
func (c *TCPClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connecting reports whether a connect to address is already underway,
// letting Connect's no-op-if-already-connecting rule extend to
// "already connecting to THIS address" rather than any address.
func (c *TCPClient) Connecting(address string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnecting && c.addr == address
}

// Connect issues a non-blocking connect to addr. A no-op if already
// connecting to that same address.
func (c *TCPClient) Connect(addr string) *merrors.Error {
	if c.Connecting(addr) {
		return nil
	}

	s := socket.New(c.owner)

	c.mu.Lock()
	c.sock = s
	c.addr = addr
	c.state = StateConnecting
	c.residual = nil
	c.mu.Unlock()

	if c.tlsConfig != nil {
		adapter := newTLSAdapter(s, c.tlsConfig, false)
		s.SetDecoder(adapter)
		c.mu.Lock()
		c.tls = adapter
		c.mu.Unlock()
	} else {
		c.mu.Lock()
		c.tls = nil
		c.mu.Unlock()
	}

	s.OnReceived.Subscribe(func(buf []byte) bool {
		c.onReceived(buf)
		return false
	})
	s.OnFlush.Subscribe(func(struct{}) bool {
		c.onFlush()
		return false
	})
	s.OnDisconnection.Subscribe(func(peer net.Addr) bool {
		c.onDisconnection(peer)
		return false
	})
	s.OnError.Subscribe(func(err *merrors.Error) bool {
		c.OnError.Raise(err)
		return false
	})

	if err := s.Connect(addr); err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}

	if err := c.io.Register(s, c.owner, 0, 0); err != nil {
		return err
	}
	_, writeTrack := s.Tracks()
	c.mu.Lock()
	c.sendingTrack = writeTrack
	c.mu.Unlock()

	if s.State() == socket.StateConnecting {
		if err := c.io.ArmWrite(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *TCPClient) onFlush() {
	c.mu.Lock()
	first := c.state == StateConnecting
	if first {
		c.state = StateConnected
	}
	c.mu.Unlock()
	c.OnFlush.Raise(struct{}{})
}

func (c *TCPClient) onDisconnection(peer net.Addr) {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
	c.OnDisconnection.Raise(peer)
}

func (c *TCPClient) onReceived(buf []byte) {
	c.mu.Lock()
	data := append(c.residual, buf...)
	onData := c.OnData
	c.mu.Unlock()

	if onData == nil {
		c.mu.Lock()
		c.residual = nil
		c.mu.Unlock()
		return
	}

	consumed := onData(data)
	if consumed < 0 {
		consumed = 0
	}
	if consumed > len(data) {
		consumed = len(data)
	}

	c.mu.Lock()
	c.residual = append([]byte(nil), data[consumed:]...)
	c.mu.Unlock()
}

// Connected reports whether the connection has completed its flush-to-
// connected transition.
func (c *TCPClient) Connected() bool { return c.State() == StateConnected }

// Send submits data for transmission on the client's sending track,
// through TLS first if installed. Returns immediately; failures surface
// via OnError.
func (c *TCPClient) Send(data []byte) *merrors.Error {
	c.mu.Lock()
	s := c.sock
	adapter := c.tls
	sendTrack := c.sendingTrack
	c.mu.Unlock()

	if s == nil {
		return merrors.New(merrors.Intern, "tcpclient: send before connect")
	}

	return c.pool.Queue(&sendTrack, func() *merrors.Error {
		if adapter != nil {
			if _, err := adapter.Write(data); err != nil {
				merr := merrors.Wrap(merrors.Network, err, "tls write")
				c.OnError.Raise(merr)
				return merr
			}
			return nil
		}
		if _, err := s.Write(data); err != nil {
			c.OnError.Raise(err)
			return err
		}
		return nil
	}, nil)
}

// Disconnect half-closes and releases the underlying socket.
func (c *TCPClient) Disconnect() *merrors.Error {
	c.mu.Lock()
	s := c.sock
	adapter := c.tls
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	if adapter != nil {
		_ = adapter.Close()
	}
	_ = s.Shutdown(2) // unix.SHUT_RDWR
	return s.Close()
}
