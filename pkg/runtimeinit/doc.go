/*
Package runtimeinit carries the one-shot process setup that has to run
before any socket touches the wire: SIGPIPE, unhandled, kills the
process on a write to a peer that has already closed its end, and Go's
signal package leaves the OS default delivery in place for signals it
never Notify's on. Ignoring it here makes a broken pipe surface the
same way on every platform this runtime targets: as an error return
from Socket.Write/Drain, not a process death.
*/
package runtimeinit
