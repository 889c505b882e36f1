/*
Package bus implements Mona's per-subject typed event bus.

A Subject (Socket, File, TCPClient, ...) declares its events as ordinary
struct fields of type Event[T], one per signature it raises. Subscribing
returns a Handle; detaching by handle is idempotent and safe to call from
inside a callback.

	type Socket struct {
		OnReceived      bus.Event[[]byte]
		OnFlush         bus.Event[struct{}]
		OnDisconnection bus.Event[net.Addr]
		OnError         bus.Event[*merrors.Error]
	}

# Ordering and reentrancy

Raise invokes every subscriber registered at the moment Raise was called,
in subscription order, on the calling goroutine. For every IO-originated
event that goroutine is the owner Handler thread (see package handler), so
application subscribers see single-threaded delivery per subject.

A subscriber may attach or detach further subscribers during a raise
(reentrant); detaching does not retroactively remove a subscriber from a
raise already in progress, because Raise snapshots the subscriber list
before invoking anyone. A subscriber returning true from its callback is
the documented "stop" sentinel: it ends the current raise immediately,
skipping any subscribers after it in the snapshot.

Raise is not recursion-safe against the same subscriber being re-entered
for the same in-flight call - subscribers must not call Raise on the same
Event from within their own callback and expect synchronous recursion;
they may call Raise on a *different* Event, or queue a later Raise via a
Handler.
*/
package bus
