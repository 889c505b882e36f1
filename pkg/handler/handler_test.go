package handler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlushRunsInEnqueueOrder(t *testing.T) {
	h := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		h.Queue(ActionFunc(func() { order = append(order, i) }))
	}
	h.Flush()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFlushIsolatesPanics(t *testing.T) {
	h := New()
	var ran []int
	h.Queue(ActionFunc(func() { ran = append(ran, 1) }))
	h.Queue(ActionFunc(func() { panic("boom") }))
	h.Queue(ActionFunc(func() { ran = append(ran, 3) }))

	assert.NotPanics(t, func() { h.Flush() })
	assert.Equal(t, []int{1, 3}, ran)
}

func TestFlushDrainsActionsQueuedDuringFlush(t *testing.T) {
	h := New()
	var order []int

	h.Queue(ActionFunc(func() {
		order = append(order, 1)
		h.Queue(ActionFunc(func() { order = append(order, 2) }))
	}))

	h.Flush()
	assert.Equal(t, []int{1, 2}, order, "action enqueued mid-flush must run in the same outer Flush call")
}

func TestNestedFlushCallIsNoOp(t *testing.T) {
	h := New()
	var order []int

	h.Queue(ActionFunc(func() {
		order = append(order, 1)
		h.Queue(ActionFunc(func() { order = append(order, 2) }))
		h.Flush() // nested call: must not run action 2 twice or out of order
		order = append(order, 3)
	}))

	h.Flush()
	assert.Equal(t, []int{1, 3, 2}, order)
}

func TestQueueIsSafeFromManyProducers(t *testing.T) {
	h := New()
	const producers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Queue(ActionFunc(func() {
				mu.Lock()
				count++
				mu.Unlock()
			}))
		}()
	}
	wg.Wait()
	h.Flush()
	assert.Equal(t, producers, count)
}

func TestWaitWakesOnQueue(t *testing.T) {
	h := New()
	done := make(chan bool, 1)
	go func() { done <- h.Wait(5000) }()

	time.Sleep(20 * time.Millisecond)
	h.Queue(ActionFunc(func() {}))

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not wake on Queue")
	}
}
