package merrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(Network, nil, "connect %s", "x"))
}

func TestIsMatchesKind(t *testing.T) {
	err := Wrap(Unfound, errors.New("no such file"), "open %s", "/tmp/x")
	assert.True(t, Is(err, Unfound))
	assert.False(t, Is(err, Network))
}

func TestWithCode(t *testing.T) {
	err := New(System, "write failed").WithCode(28)
	assert.Equal(t, 28, err.Code())
	assert.Equal(t, System, err.Kind())
}

func TestErrorUnwraps(t *testing.T) {
	cause := errors.New("econnreset")
	err := Wrap(Network, cause, "peer reset")
	assert.ErrorIs(t, err, cause)
}
