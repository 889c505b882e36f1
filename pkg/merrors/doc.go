/*
Package merrors defines the structured, tagged error type shared by every
Mona subsystem.

Errors never cross a thread boundary by unwinding: a worker catches
whatever failure it can observe and writes a *merrors.Error into the
Action that carries it back to the owner Handler, which raises onError.
Callers that need to branch on failure class switch on Kind(), not on
string matching or sentinel values.

# Kinds

	Network    - connect refused, peer reset, address in use
	Permission - denied by the OS
	Unfound    - no such file/address
	System     - syscall failure not covered above (disk full, EMFILE, ...)
	Intern     - a Mona invariant was violated; always a bug
	Format     - malformed input handed to a decoder
	Argument   - caller passed an invalid argument

# Usage

	if err != nil {
		return merrors.Wrap(merrors.Network, err, "connect %s", addr)
	}

	if merrors.Is(err, merrors.Unfound) {
		// recoverable: treat as a miss
	}
*/
package merrors
