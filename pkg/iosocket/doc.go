/*
Package iosocket is the OS readiness notifier for package socket.

It owns an epoll descriptor and one selector goroutine that waits on it.
Registering a Socket remembers a (socket, owner Handler, read-track,
write-track) tuple keyed by file descriptor and tagged with a generation
counter. When the selector observes readability it submits a read runner
on the socket's read-track; the runner pulls bytes until the kernel would
block and posts each buffer to the owner Handler, where the socket's
decoder (if any) runs before onReceived is raised, unless the decoder
captured the buffer. The decoder does not run on the read worker.
Writability submits a write runner the same way, draining the
send buffer and posting onFlush once empty. Peer close or error posts
onDisconnection/onError exactly once.

# Ordering

A socket pins to one read-track and one write-track, so the worker that
drains it always finishes runners in submission order; since submission
order follows readiness order, the owner Handler observes onReceived/
onFlush/onDisconnection in exactly the order the wire delivered them.

# Teardown

Deregister removes the (fd -> registration) entry under the same lock a
racing selector event would need to resolve the fd. A readiness event
that loses the race finds no registration and is silently dropped rather
than touching a socket whose owner may already be gone; one that wins
proceeds normally, because invalidation and Handler teardown are
sequenced by the application. The Socket itself stays alive until every
runner that was already in flight finishes, via its own reference count.
*/
package iosocket
