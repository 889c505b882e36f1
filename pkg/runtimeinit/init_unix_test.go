//go:build unix

package runtimeinit

import "testing"

func TestIgnoreSIGPIPEIsIdempotent(t *testing.T) {
	IgnoreSIGPIPE()
	IgnoreSIGPIPE()
}
