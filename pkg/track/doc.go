/*
Package track implements Mona's fixed worker pool: ThreadQueue (one OS
thread draining a FIFO of Runners) and ThreadPool (a fixed array of
ThreadQueues addressed by an opaque 16-bit track identifier).

A track pins a stream of work to a single worker, which is what gives a
socket's reads (or a file's writes) total order: register a subject with a
fixed read-track and write-track, and every runner submitted for that
subject on that track executes on the same goroutine, one at a time, in
submission order.

# Track selection

	ThreadPool.Queue(trackIO *uint16, runner Runner)

trackIO is an in/out parameter. Passing 0 asks the pool to pick a queue by
a rotating cursor and write that queue's id back into *trackIO; passing a
non-zero value routes to pool.queues[(track-1)%len(queues)] directly. A
caller that wants affinity calls Queue once with *trackIO == 0 to get an
assignment, then reuses that same value on every subsequent call for the
same subject.

# Shutdown

ThreadQueue.Stop requests the worker loop to exit after draining whatever
is already queued - a runner submitted before Stop is always executed, so
a caller that Stops then Joins never loses queued work. Work submitted
after Stop is rejected.
*/
package track
