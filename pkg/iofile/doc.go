/*
Package iofile is the worker-side counterpart to package file, the same
division of labour package iosocket has with package socket, but without
an OS readiness notifier: disk I/O has no equivalent of epoll, so iofile
submits blocking read/write/unlink calls directly onto a ThreadPool
track instead of waiting on a readiness edge.

Register pins a File to an I/O track (reads and writes) and a decoding
track (where an installed Decoder runs, potentially a different worker
than the one that did the blocking read, enabling pipeline parallelism
between disk I/O and decode work). Read, Write arming and Erase arming
each submit one runner on the I/O track (a read then hands its buffer to
a second runner on the decoding track); their completions cross back to
the owner Handler exactly like iosocket's do.
*/
package iofile
