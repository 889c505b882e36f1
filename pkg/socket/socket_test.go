package socket

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	armWriteCalls  int
	deregisterCall int
	armErr         error
}

func (f *fakeNotifier) ArmWrite(s *Socket) error {
	f.armWriteCalls++
	return f.armErr
}

func (f *fakeNotifier) Deregister(s *Socket) { f.deregisterCall++ }

func newConnectedSocket() *Socket {
	s := New(nil)
	s.fd.Store(42)
	s.state.Store(int32(StateConnected))
	return s
}

func TestWriteAccumulatesQueueingAndArmsNotifierOnce(t *testing.T) {
	s := newConnectedSocket()
	n := &fakeNotifier{}
	s.SetNotifier(n)

	written, err := s.Write([]byte("hello"))
	require.Nil(t, err)
	assert.Equal(t, 5, written)
	assert.EqualValues(t, 5, s.Queueing())
	assert.Equal(t, 1, n.armWriteCalls)

	_, err = s.Write([]byte("world"))
	require.Nil(t, err)
	assert.EqualValues(t, 10, s.Queueing())
	assert.Equal(t, 1, n.armWriteCalls, "a second Write while already flushing must not re-arm")
}

func TestWriteRejectsWhenNotConnected(t *testing.T) {
	s := New(nil)
	_, err := s.Write([]byte("x"))
	assert.NotNil(t, err)
}

func TestMarkFlushedClearsFlagAndRaisesOnFlush(t *testing.T) {
	s := newConnectedSocket()
	s.SetNotifier(&fakeNotifier{})

	fired := make(chan struct{}, 1)
	s.OnFlush.Subscribe(func(struct{}) bool {
		fired <- struct{}{}
		return false
	})

	_, err := s.Write([]byte("data"))
	require.Nil(t, err)
	assert.True(t, s.flushing.Load())

	s.MarkFlushed()
	assert.False(t, s.flushing.Load())

	select {
	case <-fired:
	default:
		t.Fatal("OnFlush was not raised")
	}

	// flushing must be re-armable after being cleared.
	n := &fakeNotifier{}
	s.SetNotifier(n)
	_, err = s.Write([]byte("more"))
	require.Nil(t, err)
	assert.Equal(t, 1, n.armWriteCalls)
}

func TestDeliverPassesThroughWithoutDecoder(t *testing.T) {
	s := New(nil)
	var got []byte
	s.OnReceived.Subscribe(func(b []byte) bool {
		got = b
		return false
	})
	s.Deliver([]byte("payload"))
	assert.Equal(t, []byte("payload"), got)
}

type captureDecoder struct{ captureAll bool }

func (c *captureDecoder) Decode(buf []byte) ([]byte, bool) {
	if c.captureAll {
		return nil, true
	}
	return buf, false
}

func TestDeliverHonoursDecoderCapture(t *testing.T) {
	s := New(nil)
	s.SetDecoder(&captureDecoder{captureAll: true})

	called := false
	s.OnReceived.Subscribe(func([]byte) bool {
		called = true
		return false
	})
	s.Deliver([]byte("secret"))
	assert.False(t, called, "captured bytes must not reach OnReceived")
}

func TestCloseIsIdempotentAndDeregistersOnce(t *testing.T) {
	s := newConnectedSocket()
	n := &fakeNotifier{}
	s.SetNotifier(n)

	require.Nil(t, s.Close())
	require.Nil(t, s.Close())
	assert.Equal(t, 1, n.deregisterCall)
	assert.Equal(t, StateClosed, s.State())
}

func TestCloseWaitsForOutstandingRunners(t *testing.T) {
	s := newConnectedSocket()
	s.Retain()

	require.Nil(t, s.Close())
	assert.NotEqual(t, StateClosed, s.State(), "descriptor must not close while a runner is in flight")

	s.Release()
	assert.Equal(t, StateClosed, s.State())
}

func TestCloseRaisesOnDisconnectionWhenConnected(t *testing.T) {
	s := newConnectedSocket()
	s.SetNotifier(&fakeNotifier{})

	notified := false
	s.OnDisconnection.Subscribe(func(net.Addr) bool {
		notified = true
		return false
	})

	require.Nil(t, s.Close())
	assert.True(t, notified, "a locally-initiated Close must raise OnDisconnection too, not just peer-initiated Disconnected")

	// A Close that follows an already-processed Disconnected must not
	// raise a second time.
	notified = false
	s2 := newConnectedSocket()
	s2.SetNotifier(&fakeNotifier{})
	s2.OnDisconnection.Subscribe(func(net.Addr) bool {
		notified = true
		return false
	})
	s2.Disconnected()
	notified = false
	require.Nil(t, s2.Close())
	assert.False(t, notified, "OnDisconnection must fire at most once across Disconnected and Close")
}

func TestDisconnectedRaisesOnDisconnectionAndDeregisters(t *testing.T) {
	s := newConnectedSocket()
	n := &fakeNotifier{}
	s.SetNotifier(n)

	var sawAddr net.Addr
	notified := false
	s.OnDisconnection.Subscribe(func(a net.Addr) bool {
		sawAddr = a
		notified = true
		return false
	})

	s.Disconnected()
	assert.True(t, notified)
	assert.Nil(t, sawAddr)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 1, n.deregisterCall)
}

func TestSetTracksRoundTrips(t *testing.T) {
	s := New(nil)
	s.SetTracks(3, 7)
	read, write := s.Tracks()
	assert.EqualValues(t, 3, read)
	assert.EqualValues(t, 7, write)
}
