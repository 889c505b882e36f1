package tcpclient

import (
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/cuemby/mona/pkg/socket"
)

// tlsAdapter installs as a Socket's Decoder and bridges it to a
// crypto/tls.Conn: inbound ciphertext fed to Decode is pushed through an
// in-memory pipe, a background goroutine drains the resulting plaintext
// from tls.Conn.Read and delivers it via socket.Deliver, and outbound
// plaintext is encrypted by routing Write through tls.Conn.Write instead
// of the socket directly. Decode always reports "captured": the wire
// format genuinely is consumed by TLS, never handed raw to the stream
// assembler.
type tlsAdapter struct {
	sock    *socket.Socket
	feedW   *io.PipeWriter
	tlsConn *tls.Conn
}

func newTLSAdapter(sock *socket.Socket, cfg *tls.Config, server bool) *tlsAdapter {
	feedR, feedW := io.Pipe()
	shim := &socketConn{sock: sock, feedR: feedR}

	var conn *tls.Conn
	if server {
		conn = tls.Server(shim, cfg)
	} else {
		conn = tls.Client(shim, cfg)
	}

	a := &tlsAdapter{sock: sock, feedW: feedW, tlsConn: conn}
	go a.pump()
	return a
}

func (a *tlsAdapter) pump() {
	buf := make([]byte, 16*1024)
	for {
		n, err := a.tlsConn.Read(buf)
		if n > 0 {
			a.sock.Deliver(append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			return
		}
	}
}

// Decode implements socket.Decoder: it never delivers directly, it only
// feeds the adapter's background TLS connection.
func (a *tlsAdapter) Decode(buf []byte) ([]byte, bool) {
	_, _ = a.feedW.Write(buf)
	return nil, true
}

// Write encrypts data and sends it over the underlying socket. Blocks
// until the TLS record layer accepts the write (handshake permitting);
// callers run it from a worker, never from the owner Handler thread.
func (a *tlsAdapter) Write(data []byte) (int, error) {
	return a.tlsConn.Write(data)
}

func (a *tlsAdapter) Close() error {
	_ = a.feedW.Close()
	return a.tlsConn.Close()
}

// socketConn adapts a non-blocking socket.Socket plus a pipe-fed read
// side into the blocking net.Conn crypto/tls expects. Deadlines are
// ignored: handshakes and record reads ride on the decode/feed cadence
// driven by the socket's own read-track worker, not on wall-clock
// timeouts.
type socketConn struct {
	sock  *socket.Socket
	feedR *io.PipeReader
}

func (c *socketConn) Read(p []byte) (int, error) { return c.feedR.Read(p) }

func (c *socketConn) Write(p []byte) (int, error) {
	n, err := c.sock.Write(p)
	if err != nil {
		return n, err
	}
	return n, nil
}

func (c *socketConn) Close() error                       { return c.feedR.Close() }
func (c *socketConn) LocalAddr() net.Addr                { return c.sock.Local() }
func (c *socketConn) RemoteAddr() net.Addr               { return c.sock.Peer() }
func (c *socketConn) SetDeadline(t time.Time) error      { return nil }
func (c *socketConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *socketConn) SetWriteDeadline(t time.Time) error { return nil }
