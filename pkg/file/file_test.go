package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWriteDrainAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip.txt")

	w := New(path, ModeWrite)
	require.Nil(t, w.Load())

	require.Nil(t, w.Write([]byte("hello ")))
	require.Nil(t, w.Write([]byte("world")))
	assert.EqualValues(t, 11, w.Queueing())

	sent, remaining, err := w.Drain()
	require.NoError(t, err)
	assert.Equal(t, 11, sent)
	assert.Equal(t, 0, remaining)
	assert.EqualValues(t, 0, w.Queueing())
	assert.EqualValues(t, 11, w.Written())

	r := New(path, ModeRead)
	require.Nil(t, r.Load())
	buf := make([]byte, 64)
	n, end, rerr := r.Read(buf)
	require.Nil(t, rerr)
	// The read reached the size Load saw, so it already carries end.
	assert.True(t, end)
	assert.Equal(t, "hello world", string(buf[:n]))

	n2, end2, rerr2 := r.Read(buf)
	require.Nil(t, rerr2)
	assert.Equal(t, 0, n2)
	assert.True(t, end2)
}

func TestLoadMissingReadFileReturnsUnfound(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "nope.txt"), ModeRead)
	err := r.Load()
	require.NotNil(t, err)
	assert.Equal(t, "unfound", string(err.Kind()))
}

func TestWriteRejectedInReadMode(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "x.txt"), ModeRead)
	err := r.Write([]byte("nope"))
	require.NotNil(t, err)
	assert.Equal(t, "argument", string(err.Kind()))
}

func TestEraseRemovesFileAndBlocksFurtherWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todelete.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	f := New(path, ModeWrite)
	require.Nil(t, f.Load())

	flushed := make(chan bool, 1)
	f.OnFlush.Subscribe(func(deletion bool) bool {
		flushed <- deletion
		return false
	})

	require.Nil(t, f.Erase())
	select {
	case deletion := <-flushed:
		assert.True(t, deletion)
	default:
		t.Fatal("OnFlush(true) was not raised synchronously without a notifier")
	}

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	werr := f.Write([]byte("late"))
	require.NotNil(t, werr)
}

func TestAppendModeAddsDataAtEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "append.txt")
	require.NoError(t, os.WriteFile(path, []byte("base-"), 0644))

	f := New(path, ModeAppend)
	require.Nil(t, f.Load())
	require.Nil(t, f.Write([]byte("more")))
	_, _, err := f.Drain()
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "base-more", string(got))
}

func TestPathAccessors(t *testing.T) {
	f := New("/tmp/data/archive.tar.gz", ModeRead)
	assert.Equal(t, "archive.tar.gz", f.Name())
	assert.Equal(t, ".gz", f.Extension())
	assert.Equal(t, "/tmp/data", f.Parent())
	assert.True(t, f.IsAbsolute())
}
