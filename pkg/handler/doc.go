/*
Package handler implements the multi-producer, single-consumer Action queue
that every completion in Mona funnels through before it reaches application
code.

Any thread may call Queue; only the owner thread may call Flush. Flush
drains the queue in enqueue order, invoking each Action exactly once, and
isolates failures so a panicking Action cannot stop the rest of the batch
from running.

# Ordering

	Producer A: Queue(action1)
	Producer B: Queue(action2)
	Producer A: Queue(action3)

	Owner thread: Flush() -> action1.Run(); action2.Run(); action3.Run()

# Reentrancy

Flush is not reentrant on the same Handler: if an Action calls Flush while
already inside a Flush call, the nested call is a no-op, because the outer
call re-checks the queue tail after running each batch and will pick up
anything enqueued mid-drain itself. This is the resolution documented in
DESIGN.md for the "is Flush reentrant" open question - actions queued
during a drain run in the same outer Flush call, never in a nested one.

# Waking the owner

A Handler wakes its consumer with a signal.Signal rather than a condition
variable so TerminateSignal-style bounded waits compose naturally:

	for {
		h.Wait(0)
		h.Flush()
	}
*/
package handler
