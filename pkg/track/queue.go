package track

import (
	"runtime"
	"sync"

	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/log"
	"github.com/cuemby/mona/pkg/merrors"
)

type queuedRunner struct {
	runner Runner
	done   func(*merrors.Error)
}

// ThreadQueue is one OS thread bound to a FIFO of Runners. It is the unit
// of affinity: every Runner submitted to the same ThreadQueue executes
// one at a time, in submission order, on the same locked OS thread.
type ThreadQueue struct {
	id       uint16
	priority Priority

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []queuedRunner
	stopped bool
	running bool
	wg      sync.WaitGroup

	// backHandler receives a diagnostic action when a Runner fails and
	// was queued without its own done callback - the generic fallback
	// named "back-Handler" in the data model.
	backHandler *handler.Handler

	lastErrMu sync.Mutex
	lastErr   *merrors.Error
}

// NewThreadQueue creates a ThreadQueue identified by id (the track
// number). backHandler may be nil if callers always supply a done
// callback to Queue.
func NewThreadQueue(id uint16, backHandler *handler.Handler) *ThreadQueue {
	q := &ThreadQueue{id: id, backHandler: backHandler}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// ID reports the track identifier for this queue.
func (q *ThreadQueue) ID() uint16 { return q.id }

// Running reports whether the worker goroutine is currently active.
func (q *ThreadQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Depth reports the number of Runners currently waiting in this queue,
// not counting one that may already be executing.
func (q *ThreadQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// LastError reports the most recent Runner failure observed by this
// queue, or nil if none has occurred.
func (q *ThreadQueue) LastError() *merrors.Error {
	q.lastErrMu.Lock()
	defer q.lastErrMu.Unlock()
	return q.lastErr
}

// Start is idempotent: calling it while already running does nothing.
func (q *ThreadQueue) Start(priority Priority) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopped = false
	q.priority = priority
	q.mu.Unlock()

	q.wg.Add(1)
	go q.loop()
}

// Queue enqueues runner, to be executed on this queue's worker thread.
// done, if non-nil, is invoked on the worker thread immediately after Run
// returns, with the resulting error (nil on success). Queue is safe to
// call from any goroutine; it fails if the queue has already been
// stopped.
func (q *ThreadQueue) Queue(runner Runner, done func(*merrors.Error)) *merrors.Error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return merrors.New(merrors.Intern, "track %d: queue stopped", q.id)
	}
	q.queue = append(q.queue, queuedRunner{runner: runner, done: done})
	q.mu.Unlock()
	q.cond.Broadcast()
	return nil
}

// Stop requests the worker loop to exit after it has drained whatever is
// already queued. It returns immediately; call Join to block until the
// thread actually exits.
func (q *ThreadQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Join blocks until the worker thread exits.
func (q *ThreadQueue) Join() {
	q.wg.Wait()
	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
}

func (q *ThreadQueue) loop() {
	defer q.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	applyPriority(q.priority)

	logger := log.WithTrack(q.id)

	for {
		q.mu.Lock()
		for len(q.queue) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if len(q.queue) == 0 && q.stopped {
			q.mu.Unlock()
			return
		}
		batch := q.queue
		q.queue = nil
		q.mu.Unlock()

		for _, item := range batch {
			err := item.runner()
			if err != nil {
				q.lastErrMu.Lock()
				q.lastErr = err
				q.lastErrMu.Unlock()
			}
			if item.done != nil {
				item.done(err)
			} else if err != nil && q.backHandler != nil {
				capturedErr := err
				q.backHandler.Queue(handler.ActionFunc(func() {
					logger.Error().Err(capturedErr).Msg("track: runner failed with no completion handler")
				}))
			}
		}
	}
}
