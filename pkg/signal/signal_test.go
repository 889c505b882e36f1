package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitTimesOutWithoutSet(t *testing.T) {
	s := New()
	assert.False(t, s.Wait(10))
}

func TestSetBeforeWaitCoalesces(t *testing.T) {
	s := New()
	s.Set()
	s.Set()
	s.Set()
	assert.True(t, s.Wait(100))
	// The three Sets coalesced into one pending signal; it was consumed.
	assert.False(t, s.Wait(10))
}

func TestSetWakesConcurrentWaiter(t *testing.T) {
	s := New()
	done := make(chan bool, 1)
	go func() {
		done <- s.Wait(5000)
	}()

	time.Sleep(20 * time.Millisecond)
	s.Set()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Set")
	}
}

func TestTerminateSignalSetByHand(t *testing.T) {
	ts := NewTerminateSignal()
	done := make(chan bool, 1)
	go func() {
		done <- ts.Wait(5000)
	}()

	time.Sleep(20 * time.Millisecond)
	ts.Set()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("TerminateSignal.Wait did not return after Set")
	}
}
