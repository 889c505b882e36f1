package track

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/mona/pkg/merrors"
)

func TestThreadQueueRunsInOrder(t *testing.T) {
	q := NewThreadQueue(1, nil)
	q.Start(PriorityNormal)
	defer q.Join()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		require.Nil(t, q.Queue(func() *merrors.Error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
			return nil
		}, nil))
	}
	wg.Wait()

	for i, v := range order {
		assert.Equal(t, i, v)
	}
	q.Stop()
}

func TestThreadQueueDrainsBeforeStopCompletes(t *testing.T) {
	q := NewThreadQueue(1, nil)
	q.Start(PriorityNormal)

	ran := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		require.Nil(t, q.Queue(func() *merrors.Error {
			time.Sleep(time.Millisecond)
			ran <- struct{}{}
			return nil
		}, nil))
	}

	q.Stop()
	q.Join()

	assert.Len(t, ran, 5, "all runners queued before Stop must run before Join returns")
}

func TestThreadQueueRejectsAfterStop(t *testing.T) {
	q := NewThreadQueue(1, nil)
	q.Start(PriorityNormal)
	q.Stop()
	q.Join()

	err := q.Queue(func() *merrors.Error { return nil }, nil)
	assert.NotNil(t, err)
}

func TestThreadQueueDoneReceivesError(t *testing.T) {
	q := NewThreadQueue(1, nil)
	q.Start(PriorityNormal)
	defer func() { q.Stop(); q.Join() }()

	wantErr := merrors.New(merrors.System, "disk full")
	done := make(chan *merrors.Error, 1)
	require.Nil(t, q.Queue(func() *merrors.Error { return wantErr }, func(err *merrors.Error) {
		done <- err
	}))

	select {
	case got := <-done:
		assert.Equal(t, wantErr, got)
	case <-time.After(time.Second):
		t.Fatal("done callback never invoked")
	}
}

func TestThreadPoolTrackAffinity(t *testing.T) {
	p := NewThreadPool(4, PriorityNormal, nil)
	defer p.Join()

	var track uint16 // 0 == "assign me any queue"
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		assigned := track
		require.Nil(t, p.Queue(&assigned, func() *merrors.Error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
			return nil
		}, nil))
		track = assigned
	}
	wg.Wait()

	require.NotZero(t, track)
	for i, v := range order {
		assert.Equal(t, i, v, "runners sharing a track must execute in submission order")
	}
}

func TestThreadPoolTrackZeroRoundRobins(t *testing.T) {
	p := NewThreadPool(4, PriorityNormal, nil)
	defer p.Join()

	seen := map[uint16]bool{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		var track uint16
		require.Nil(t, p.Queue(&track, func() *merrors.Error {
			wg.Done()
			return nil
		}, nil))
		mu.Lock()
		seen[track] = true
		mu.Unlock()
	}
	wg.Wait()

	assert.Greater(t, len(seen), 1, "track 0 should fan out across multiple queues")
}

func TestThreadPoolJoinReturnsRunningCount(t *testing.T) {
	p := NewThreadPool(3, PriorityNormal, nil)
	n := p.Join()
	assert.Equal(t, 3, n)
	// Joining an already-joined pool reports 0 still running.
	assert.Equal(t, 0, p.Join())
}
