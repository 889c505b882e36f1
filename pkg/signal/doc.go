/*
Package signal provides a single-shot, auto-resettable latch (Signal) and a
process-wide shutdown latch wired to OS termination signals
(TerminateSignal).

# Signal

A Signal coalesces any number of Set() calls made before a Wait(): the
waiter sees exactly one "was signalled" outcome, not one per Set(). Wait
blocks up to a deadline (0 meaning infinite) and reports whether the event
fired during the wait, filtering spurious wakeups.

# TerminateSignal

TerminateSignal installs handlers for SIGINT/SIGTERM/SIGQUIT once, process
wide. Wait() unblocks either because the OS delivered one of those signals
or because another goroutine called Set() directly — useful for tests that
want to simulate a shutdown request without sending a real signal.

Mona never reinstalls default signal handlers; that is out of scope.
*/
package signal
