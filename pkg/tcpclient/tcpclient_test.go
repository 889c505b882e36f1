//go:build unix

package tcpclient

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/iosocket"
	"github.com/cuemby/mona/pkg/socket"
	"github.com/cuemby/mona/pkg/track"
)

func newTestClient(t *testing.T) (*TCPClient, *handler.Handler, func()) {
	t.Helper()
	pool := track.NewThreadPool(2, track.PriorityNormal, nil)
	io, err := iosocket.New(pool, 4096)
	require.NoError(t, err)

	owner := handler.New()
	c := New(io, pool, owner, nil)
	return c, owner, func() {
		_ = io.Close()
		pool.Join()
	}
}

func TestStreamAssemblerKeepsUnconsumedResidual(t *testing.T) {
	c, owner, cleanup := newTestClient(t)
	defer cleanup()
	_ = owner

	var seen [][]byte
	c.OnData = func(buf []byte) int {
		cp := append([]byte(nil), buf...)
		seen = append(seen, cp)
		if len(buf) < 5 {
			return 0
		}
		return 5
	}

	c.onReceived([]byte("abc"))
	c.onReceived([]byte("de"))

	require.Len(t, seen, 2)
	assert.Equal(t, "abc", string(seen[0]))
	assert.Equal(t, "abcde", string(seen[1]))
	assert.Empty(t, c.residual)
}

func TestConnectingIsFalseForDifferentAddress(t *testing.T) {
	c, _, cleanup := newTestClient(t)
	defer cleanup()

	c.mu.Lock()
	c.state = StateConnecting
	c.addr = "127.0.0.1:9999"
	c.mu.Unlock()

	assert.True(t, c.Connecting("127.0.0.1:9999"))
	assert.False(t, c.Connecting("127.0.0.1:8888"))
}

func TestReceivedBytesOverRealPipeReachOnData(t *testing.T) {
	c, owner, cleanup := newTestClient(t)
	defer cleanup()

	rf, wf, err := os.Pipe()
	require.NoError(t, err)
	defer rf.Close()
	defer wf.Close()
	require.NoError(t, unix.SetNonblock(int(rf.Fd()), true))

	s := socket.FromFD(owner, int(rf.Fd()), nil, nil)

	received := make(chan []byte, 1)
	c.OnData = func(buf []byte) int {
		cp := append([]byte(nil), buf...)
		received <- cp
		return len(buf)
	}

	c.mu.Lock()
	c.sock = s
	c.state = StateConnected
	c.mu.Unlock()
	s.OnReceived.Subscribe(func(buf []byte) bool {
		c.onReceived(buf)
		return false
	})

	pool := track.NewThreadPool(1, track.PriorityNormal, nil)
	defer pool.Join()
	io2, err := iosocket.New(pool, 4096)
	require.NoError(t, err)
	defer io2.Close()
	require.NoError(t, io2.Register(s, owner, 0, 0))

	_, werr := wf.Write([]byte("ping"))
	require.NoError(t, werr)

	deadline := time.Now().Add(2 * time.Second)
	var got []byte
	for time.Now().Before(deadline) {
		owner.Flush()
		select {
		case got = <-received:
		default:
		}
		if len(got) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, "ping", string(got))
}

func TestDisconnectRaisesOnDisconnection(t *testing.T) {
	c, owner, cleanup := newTestClient(t)
	defer cleanup()

	rf, wf, err := os.Pipe()
	require.NoError(t, err)
	defer wf.Close()
	require.NoError(t, unix.SetNonblock(int(rf.Fd()), true))

	s := socket.FromFD(owner, int(rf.Fd()), nil, nil)
	c.mu.Lock()
	c.sock = s
	c.state = StateConnected
	c.mu.Unlock()
	s.OnDisconnection.Subscribe(func(peer net.Addr) bool {
		c.onDisconnection(peer)
		return false
	})

	disconnected := make(chan struct{}, 1)
	c.OnDisconnection.Subscribe(func(net.Addr) bool {
		disconnected <- struct{}{}
		return false
	})

	require.Nil(t, c.Disconnect())
	owner.Flush()

	select {
	case <-disconnected:
	default:
		t.Fatal("Disconnect did not raise OnDisconnection")
	}
	assert.Equal(t, StateDisconnected, c.State())
}

var _ net.Conn = (*socketConn)(nil)
