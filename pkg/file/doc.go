/*
Package file is Mona's disk counterpart to package socket: a Path-backed
file with read/write operations, mode-gated the way a single on-disk
header can only be open for one purpose at a time (there is no R+W mode
at this level).

A File by itself performs synchronous operations; package iofile submits
those operations on worker threads and crosses back to an owner Handler
with completions, the same division of labour socket/iosocket uses for
network descriptors.

# Modes

ModeRead allows only Read. ModeWrite and ModeAppend allow Write and
Create (and, for ModeWrite, Erase); ModeDelete permits only Erase. Load()
enforces this at open time; Read/Write/Erase return a merrors.Argument
error if called against the wrong mode.

# Counters

Readen() and Written() are monotonic and safe to read from any
goroutine. Queueing() reflects bytes appended by Write but not yet
flushed to disk.
*/
package file
