package iofile

import (
	"sync"

	"github.com/cuemby/mona/pkg/file"
	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/merrors"
	"github.com/cuemby/mona/pkg/track"
)

// DefaultReadSize is used when Read is called with a non-positive size.
const DefaultReadSize = 64 * 1024

type registration struct {
	owner         *handler.Handler
	ioTrack       uint16
	decodingTrack uint16
}

// IOFile submits File operations onto ThreadPool tracks and posts
// completions back to each file's owner Handler.
type IOFile struct {
	pool *track.ThreadPool

	mu   sync.Mutex
	regs map[*file.File]*registration
}

// New creates an IOFile driving I/O through pool.
func New(pool *track.ThreadPool) *IOFile {
	return &IOFile{pool: pool, regs: make(map[*file.File]*registration)}
}

// Register pins f to an I/O track and a decoding track (0 resolves to a
// freshly reserved, stable track each) and installs this IOFile as f's
// notifier.
func (io *IOFile) Register(f *file.File, owner *handler.Handler, ioTrack, decodingTrack uint16) {
	if ioTrack == 0 {
		ioTrack = io.pool.Reserve()
	}
	if decodingTrack == 0 {
		decodingTrack = io.pool.Reserve()
	}

	io.mu.Lock()
	io.regs[f] = &registration{owner: owner, ioTrack: ioTrack, decodingTrack: decodingTrack}
	io.mu.Unlock()

	f.SetNotifier(io)
	f.SetTracks(ioTrack, decodingTrack)
}

// Deregister drops f's registration. In-flight runners still complete;
// they simply find no registration to post completions through and
// become no-ops for anything beyond the runner's own side effects.
func (io *IOFile) Deregister(f *file.File) {
	io.mu.Lock()
	delete(io.regs, f)
	io.mu.Unlock()
}

func (io *IOFile) lookup(f *file.File) (*registration, bool) {
	io.mu.Lock()
	defer io.mu.Unlock()
	reg, ok := io.regs[f]
	return reg, ok
}

// Read submits one read-runner for f, sized bufSize (DefaultReadSize if
// non-positive). If f has a decoder and it requests streaming (a
// positive nextSize), Read resubmits automatically; application code
// calls Read once to start the pipeline.
func (io *IOFile) Read(f *file.File, bufSize int) *merrors.Error {
	if bufSize <= 0 {
		bufSize = DefaultReadSize
	}
	reg, ok := io.lookup(f)
	if !ok {
		return merrors.New(merrors.Intern, "iofile: file not registered")
	}
	io.submitRead(f, reg, bufSize)
	return nil
}

func (io *IOFile) submitRead(f *file.File, reg *registration, bufSize int) {
	ioTrack := reg.ioTrack
	_ = io.pool.Queue(&ioTrack, func() *merrors.Error {
		buf := make([]byte, bufSize)
		n, end, err := f.Read(buf)
		if err != nil {
			io.postOwner(reg, func() { f.OnError.Raise(err) })
			return nil
		}
		io.submitDecode(f, reg, buf[:n], end, bufSize)
		return nil
	}, nil)
}

func (io *IOFile) submitDecode(f *file.File, reg *registration, buf []byte, end bool, bufSize int) {
	decodingTrack := reg.decodingTrack
	_ = io.pool.Queue(&decodingTrack, func() *merrors.Error {
		next, captured, hasDecoder := f.Decode(buf, end)
		if !captured {
			io.postOwner(reg, func() { f.OnReaden.Raise(file.ReadenEvent{Buffer: buf, End: end}) })
		}
		if end {
			return nil
		}
		if hasDecoder {
			if next > 0 {
				io.submitRead(f, reg, next)
			}
			return nil
		}
		return nil
	}, nil)
}

// ArmFlush submits a write-runner draining f's send queue. Implements
// file.Notifier.
func (io *IOFile) ArmFlush(f *file.File) error {
	reg, ok := io.lookup(f)
	if !ok {
		return merrors.New(merrors.Intern, "iofile: file not registered")
	}
	ioTrack := reg.ioTrack
	return io.pool.Queue(&ioTrack, func() *merrors.Error {
		for {
			_, remaining, err := f.Drain()
			if err != nil {
				io.postOwner(reg, func() { f.OnError.Raise(merrors.Wrap(merrors.System, err, "write")) })
				return nil
			}
			if remaining == 0 {
				io.postOwner(reg, f.MarkFlushed)
				return nil
			}
		}
	}, nil)
}

// ArmErase submits a runner that unlinks f's path. Implements
// file.Notifier.
func (io *IOFile) ArmErase(f *file.File) error {
	reg, ok := io.lookup(f)
	if !ok {
		return merrors.New(merrors.Intern, "iofile: file not registered")
	}
	ioTrack := reg.ioTrack
	return io.pool.Queue(&ioTrack, func() *merrors.Error {
		err := f.PerformErase()
		io.postOwner(reg, func() { f.EraseComplete(err) })
		return nil
	}, nil)
}

func (io *IOFile) postOwner(reg *registration, fn func()) {
	if reg.owner == nil {
		fn()
		return
	}
	reg.owner.Queue(handler.ActionFunc(fn))
}
