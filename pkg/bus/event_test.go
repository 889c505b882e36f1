package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaiseInvokesInSubscriptionOrder(t *testing.T) {
	var ev Event[int]
	var order []int

	ev.Subscribe(func(v int) bool { order = append(order, 1); return false })
	ev.Subscribe(func(v int) bool { order = append(order, 2); return false })
	ev.Subscribe(func(v int) bool { order = append(order, 3); return false })

	ev.Raise(42)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestStopSentinelHaltsRaise(t *testing.T) {
	var ev Event[int]
	var called []int

	ev.Subscribe(func(v int) bool { called = append(called, 1); return false })
	ev.Subscribe(func(v int) bool { called = append(called, 2); return true })
	ev.Subscribe(func(v int) bool { called = append(called, 3); return false })

	ev.Raise(0)
	assert.Equal(t, []int{1, 2}, called)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	var ev Event[int]
	h := ev.Subscribe(func(v int) bool { return false })
	ev.Unsubscribe(h)
	ev.Unsubscribe(h) // second call must not panic
	assert.Equal(t, 0, ev.Count())
}

func TestDetachDuringRaiseDoesNotAffectInFlightRaise(t *testing.T) {
	var ev Event[int]
	var calls int

	var h2 Handle
	ev.Subscribe(func(v int) bool {
		calls++
		ev.Unsubscribe(h2) // detach a later subscriber mid-raise
		return false
	})
	h2 = ev.Subscribe(func(v int) bool { calls++; return false })

	ev.Raise(0)
	// Both subscribers were in the snapshot when Raise began, so both run
	// even though the first detached the second during the raise.
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, ev.Count())
}

func TestReentrantSubscribeDuringRaise(t *testing.T) {
	var ev Event[int]
	var secondFired bool

	ev.Subscribe(func(v int) bool {
		ev.Subscribe(func(v int) bool { secondFired = true; return false })
		return false
	})

	ev.Raise(0)
	assert.False(t, secondFired, "subscriber added during a raise must not run in that same raise")

	ev.Raise(0)
	assert.True(t, secondFired, "subscriber added during the prior raise must run on the next raise")
}
