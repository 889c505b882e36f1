package track

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/merrors"
)

// ThreadPool owns a fixed-size array of ThreadQueues, numbered 1..N. Once
// NewThreadPool has returned the number of queues never changes; tracks are opaque
// 16-bit identifiers handed back to callers for affinity.
type ThreadPool struct {
	mu     sync.Mutex
	queues []*ThreadQueue
	cursor uint64
}

// NewThreadPool creates and starts n ThreadQueues at the given priority.
// n <= 0 defaults to runtime.NumCPU(). backHandler is shared by every
// queue as their fallback error sink.
func NewThreadPool(n int, priority Priority, backHandler *handler.Handler) *ThreadPool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &ThreadPool{queues: make([]*ThreadQueue, n)}
	for i := range p.queues {
		q := NewThreadQueue(uint16(i+1), backHandler)
		q.Start(priority)
		p.queues[i] = q
	}
	return p
}

// Size reports the fixed number of queues in the pool.
func (p *ThreadPool) Size() int { return len(p.queues) }

// Queue routes runner according to *track: 0 asks the pool to pick a
// queue by a rotating cursor and writes that queue's id back into *track,
// giving the caller an affinity key to reuse on every subsequent call for
// the same subject. A non-zero *track routes to queues[(track-1)%size].
func (p *ThreadPool) Queue(track *uint16, runner Runner, done func(*merrors.Error)) *merrors.Error {
	q := p.pick(track)
	return q.Queue(runner, done)
}

func (p *ThreadPool) pick(track *uint16) *ThreadQueue {
	if *track == 0 {
		idx := int(atomic.AddUint64(&p.cursor, 1)-1) % len(p.queues)
		q := p.queues[idx]
		*track = q.ID()
		return q
	}
	idx := int(*track-1) % len(p.queues)
	return p.queues[idx]
}

// Reserve picks a queue by the same rotating cursor Queue uses for track
// 0 and returns its id, without submitting any work. Callers that need a
// stable affinity key before they have a Runner to submit — iosocket's
// Register, for one — use this instead of a throwaway Queue call.
func (p *ThreadPool) Reserve() uint16 {
	idx := int(atomic.AddUint64(&p.cursor, 1)-1) % len(p.queues)
	return p.queues[idx].ID()
}

// Depths reports each queue's current depth, indexed by track id order
// (queues[0] is track 1), for metrics collection.
func (p *ThreadPool) Depths() map[uint16]int {
	out := make(map[uint16]int, len(p.queues))
	for _, q := range p.queues {
		out[q.ID()] = q.Depth()
	}
	return out
}

// Running reports how many of the pool's queues are currently running.
func (p *ThreadPool) Running() int {
	n := 0
	for _, q := range p.queues {
		if q.Running() {
			n++
		}
	}
	return n
}

// Join stops and joins every queue, returning the number of queues that
// were still running when Join was called. Any Runner queued before Join
// is called is guaranteed to run before the corresponding ThreadQueue's
// goroutine exits.
func (p *ThreadPool) Join() int {
	running := 0
	for _, q := range p.queues {
		if q.Running() {
			running++
		}
		q.Stop()
	}
	for _, q := range p.queues {
		q.Join()
	}
	return running
}
