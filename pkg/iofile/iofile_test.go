package iofile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/mona/pkg/file"
	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/track"
)

func TestWriteFlushPostsOnFlushToOwner(t *testing.T) {
	pool := track.NewThreadPool(2, track.PriorityNormal, nil)
	defer pool.Join()

	iof := New(pool)
	owner := handler.New()

	path := filepath.Join(t.TempDir(), "out.txt")
	f := file.New(path, file.ModeWrite)
	require.Nil(t, f.Load())

	iof.Register(f, owner, 0, 0)

	flushed := make(chan struct{}, 1)
	f.OnFlush.Subscribe(func(bool) bool {
		flushed <- struct{}{}
		return false
	})

	require.Nil(t, f.Write([]byte("payload")))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		owner.Flush()
		select {
		case <-flushed:
			assert.EqualValues(t, 0, f.Queueing())
			return
		default:
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("onFlush never delivered")
}

func TestReadDeliversWholeFileWithEndWithoutDecoder(t *testing.T) {
	pool := track.NewThreadPool(2, track.PriorityNormal, nil)
	defer pool.Join()

	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")

	writer := file.New(path, file.ModeWrite)
	require.Nil(t, writer.Load())
	require.Nil(t, writer.Write([]byte("streamed content")))
	_, _, werr := writer.Drain()
	require.NoError(t, werr)

	iof := New(pool)
	owner := handler.New()
	reader := file.New(path, file.ModeRead)
	require.Nil(t, reader.Load())
	iof.Register(reader, owner, 0, 0)

	received := make(chan file.ReadenEvent, 1)
	reader.OnReaden.Subscribe(func(ev file.ReadenEvent) bool {
		received <- ev
		return false
	})

	require.Nil(t, iof.Read(reader, 64))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		owner.Flush()
		select {
		case ev := <-received:
			assert.Equal(t, "streamed content", string(ev.Buffer))
			assert.True(t, ev.End)
			return
		default:
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("onReaden never delivered")
}

type fixedSizeDecoder struct{ nextSize int }

func (d *fixedSizeDecoder) Decode(buf []byte, end bool) (int, bool) {
	if end {
		return 0, false
	}
	return d.nextSize, false
}

// TestReadFlagsEndOnExactSizeMultiple exercises a file whose size is an
// exact multiple of the read buffer: the final chunk must itself carry
// End: true rather than being followed by a separate empty End delivery.
func TestReadFlagsEndOnExactSizeMultiple(t *testing.T) {
	pool := track.NewThreadPool(2, track.PriorityNormal, nil)
	defer pool.Join()

	dir := t.TempDir()
	path := filepath.Join(dir, "exact.txt")

	writer := file.New(path, file.ModeWrite)
	require.Nil(t, writer.Load())
	require.Nil(t, writer.Write([]byte("aabbcc")))
	_, _, werr := writer.Drain()
	require.NoError(t, werr)

	iof := New(pool)
	owner := handler.New()
	reader := file.New(path, file.ModeRead)
	require.Nil(t, reader.Load())
	reader.SetDecoder(&fixedSizeDecoder{nextSize: 3})
	iof.Register(reader, owner, 0, 0)

	deliveries := make(chan file.ReadenEvent, 4)
	reader.OnReaden.Subscribe(func(ev file.ReadenEvent) bool {
		deliveries <- ev
		return false
	})

	require.Nil(t, iof.Read(reader, 3))

	var got []file.ReadenEvent
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(got) < 2 {
		owner.Flush()
		select {
		case ev := <-deliveries:
			got = append(got, ev)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	require.Len(t, got, 2, "exactly two chunks expected, with no extra empty end delivery")
	assert.Equal(t, "aab", string(got[0].Buffer))
	assert.False(t, got[0].End)
	assert.Equal(t, "bcc", string(got[1].Buffer))
	assert.True(t, got[1].End)

	// Confirm no further (empty, spurious) delivery ever shows up.
	time.Sleep(50 * time.Millisecond)
	owner.Flush()
	select {
	case ev := <-deliveries:
		t.Fatalf("unexpected extra delivery: %+v", ev)
	default:
	}
}

type countingDecoder struct {
	chunkSize int
	calls     int
}

func (d *countingDecoder) Decode(buf []byte, end bool) (int, bool) {
	d.calls++
	if end {
		return 0, false
	}
	if d.calls >= 3 {
		return 0, false
	}
	return d.chunkSize, false
}

func TestDecoderStreamingContinuesReads(t *testing.T) {
	pool := track.NewThreadPool(2, track.PriorityNormal, nil)
	defer pool.Join()

	dir := t.TempDir()
	path := filepath.Join(dir, "stream.txt")

	writer := file.New(path, file.ModeWrite)
	require.Nil(t, writer.Load())
	require.Nil(t, writer.Write([]byte("aaaaaaaaaabbbbbbbbbbcccccccccc")))
	_, _, werr := writer.Drain()
	require.NoError(t, werr)

	iof := New(pool)
	owner := handler.New()
	reader := file.New(path, file.ModeRead)
	require.Nil(t, reader.Load())
	decoder := &countingDecoder{chunkSize: 10}
	reader.SetDecoder(decoder)
	iof.Register(reader, owner, 0, 0)

	deliveries := make(chan file.ReadenEvent, 10)
	reader.OnReaden.Subscribe(func(ev file.ReadenEvent) bool {
		deliveries <- ev
		return false
	})

	require.Nil(t, iof.Read(reader, 10))

	deadline := time.Now().Add(2 * time.Second)
	total := 0
	for time.Now().Before(deadline) && total < 3 {
		owner.Flush()
		select {
		case <-deliveries:
			total++
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	assert.GreaterOrEqual(t, total, 2, "decoder requesting a positive nextSize should trigger another read")
}
