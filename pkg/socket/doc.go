/*
Package socket implements Mona's non-blocking socket wrapper.

A Socket never blocks: Connect, Write and Read all return immediately, and
the actual syscalls happen on a worker thread chosen by the socket's
read-track and write-track. Package iosocket owns the OS readiness
notifier and drives those worker submissions; this package only holds the
socket's state (send buffer, queueing counter, flushing flag, decoder,
peer/local address, error slot) and the events applications subscribe to.

# Invariants

  - At most one worker at a time performs a write on a given socket,
    serialised by its write-track.
  - Reads are likewise serialised via the read-track.
  - Queueing() is monotonically accurate: Write increments it by the
    number of bytes appended; the writer decrements it after a successful
    syscall drains those bytes from the send buffer.
  - The descriptor is closed exactly once, after the last outstanding I/O
    runner for it has completed (enforced by a reference count rather
    than by the application calling Close directly while work is
    in-flight).

# Events

OnReceived, OnFlush, OnDisconnection, OnAccept (listeners only) and
OnError fire on the owner Handler thread, never on a worker thread - see
package iosocket for how a worker's completion crosses that boundary.
*/
package socket
