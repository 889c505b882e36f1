//go:build !unix

package track

// applyPriority is a no-op on platforms without a POSIX nice value; every
// priority falls back to normal.
func applyPriority(p Priority) {}
