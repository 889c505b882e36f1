package file

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/mona/pkg/bus"
	"github.com/cuemby/mona/pkg/merrors"
	"github.com/cuemby/mona/pkg/metrics"
)

// Mode restricts which operations a File allows, mirroring the fact that
// a file descriptor opened for one purpose shouldn't be asked to do
// another. The zero value, ModeRead, lets "if mode" read as a cheap
// write-mode test.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeAppend
	ModeDelete
)

// Decoder transforms a buffer freshly read from disk on the decoding
// track, the same contract package socket's Decoder has for sockets,
// plus streaming control: returning a positive nextSize asks iofile to
// immediately issue another read of that size (streaming mode), 0 stops
// the read loop, and captured=true suppresses the onReaden delivery for
// this buffer (the decoder consumed it itself).
type Decoder interface {
	Decode(buf []byte, end bool) (nextSize int, captured bool)
}

// Notifier is implemented by package iofile. A File asks its notifier to
// schedule a flush runner the first time it transitions from empty to
// non-empty send queue; it never schedules its own worker submissions.
type Notifier interface {
	ArmFlush(f *File) error
	ArmErase(f *File) error
}

// ReadenEvent is the payload of File.OnReaden.
type ReadenEvent struct {
	Buffer []byte
	End    bool
}

// File is a Path file with mode-gated read/write/erase operations.
// Operations here are synchronous; package iofile is what makes them
// asynchronous by running them on worker threads.
type File struct {
	Mode Mode

	path string

	mu     sync.Mutex
	loaded bool
	handle *os.File
	size   int64

	readen   atomic.Uint64
	written  atomic.Uint64
	queueing atomic.Int64
	flushing atomic.Bool
	readPos  atomic.Int64

	sendMu  sync.Mutex
	sendBuf []byte

	decoder       Decoder
	ioTrack       uint16
	decodingTrack uint16
	notifier      Notifier

	erased atomic.Bool

	OnReaden bus.Event[ReadenEvent]
	OnFlush  bus.Event[bool] // argument is "deletion"
	OnError  bus.Event[*merrors.Error]
}

// New creates a File bound to path in the given mode. Load must be
// called before Read/Write/Erase.
func New(path string, mode Mode) *File {
	return &File{Mode: mode, path: path}
}

// Path reports the file's path as given to New.
func (f *File) Path() string { return f.path }

// Name reports the final path element.
func (f *File) Name() string { return filepath.Base(f.path) }

// Extension reports the path's extension, including the leading dot.
func (f *File) Extension() string { return filepath.Ext(f.path) }

// Parent reports the file's containing directory.
func (f *File) Parent() string { return filepath.Dir(f.path) }

// BaseName reports Name without its extension.
func (f *File) BaseName() string {
	name := f.Name()
	return name[:len(name)-len(f.Extension())]
}

// IsAbsolute reports whether the file's path is absolute.
func (f *File) IsAbsolute() bool { return filepath.IsAbs(f.path) }

// Loaded reports whether Load has completed successfully.
func (f *File) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Readen reports the total bytes read so far. Safe from any goroutine.
func (f *File) Readen() uint64 { return f.readen.Load() }

// Written reports the total bytes written so far. Safe from any goroutine.
func (f *File) Written() uint64 { return f.written.Load() }

// Queueing reports bytes appended by Write but not yet flushed to disk.
func (f *File) Queueing() int64 { return f.queueing.Load() }

// SetDecoder installs a decoder consulted by iofile's read loop.
func (f *File) SetDecoder(d Decoder) { f.decoder = d }

// Decode runs the installed decoder against buf, if one is installed.
// hasDecoder is false when no decoder was set, letting iofile fall back
// to a single plain delivery with no streaming continuation.
func (f *File) Decode(buf []byte, end bool) (next int, captured bool, hasDecoder bool) {
	if f.decoder == nil {
		return 0, false, false
	}
	next, captured = f.decoder.Decode(buf, end)
	return next, captured, true
}

// SetNotifier attaches the worker scheduler. Called by iofile.Register.
func (f *File) SetNotifier(n Notifier) { f.notifier = n }

// SetTracks pins the file's I/O and decoding workers. Called by
// iofile.Register.
func (f *File) SetTracks(ioTrack, decodingTrack uint16) {
	f.ioTrack = ioTrack
	f.decodingTrack = decodingTrack
}

// Tracks reports the file's pinned I/O and decoding tracks.
func (f *File) Tracks() (ioTrack, decodingTrack uint16) { return f.ioTrack, f.decodingTrack }

// Exists reports whether the path currently exists on disk.
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Size reports the file's size as of the last Load, or a fresh stat if
// refresh is true.
func (f *File) Size(refresh bool) (int64, *merrors.Error) {
	if !refresh {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.size, nil
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, classifyStatError(err)
	}
	f.mu.Lock()
	f.size = info.Size()
	f.mu.Unlock()
	return info.Size(), nil
}

// LastModified reports the path's modification time.
func (f *File) LastModified() (time.Time, *merrors.Error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}, classifyStatError(err)
	}
	return info.ModTime(), nil
}

// Load opens the file according to Mode, as expensive as a stat. It must
// be called once before Read/Write/Erase.
func (f *File) Load() *merrors.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return nil
	}

	if f.Mode == ModeDelete {
		if !f.Exists() {
			return merrors.New(merrors.Unfound, "file %s: not found", f.path)
		}
		f.loaded = true
		return nil
	}

	flags := os.O_RDONLY
	switch f.Mode {
	case ModeWrite:
		flags = os.O_RDWR | os.O_CREATE
	case ModeAppend:
		flags = os.O_RDWR | os.O_CREATE | os.O_APPEND
	}

	handle, err := os.OpenFile(f.path, flags, 0644)
	if err != nil {
		return classifyOpenError(err)
	}
	if info, statErr := handle.Stat(); statErr == nil {
		f.size = info.Size()
	}
	f.handle = handle
	f.loaded = true
	return nil
}

// Read fills buf from the current file position, synchronously.
func (f *File) Read(buf []byte) (n int, end bool, merr *merrors.Error) {
	if f.Mode != ModeRead {
		return 0, false, merrors.New(merrors.Argument, "file %s: read requires ModeRead", f.path)
	}
	f.mu.Lock()
	handle := f.handle
	f.mu.Unlock()
	if handle == nil {
		return 0, false, merrors.New(merrors.Intern, "file %s: not loaded", f.path)
	}

	n, err := handle.Read(buf)
	if err != nil {
		if err == io.EOF {
			return n, true, nil
		}
		merr = merrors.Wrap(merrors.System, err, "read %s", f.path)
		return 0, false, merr
	}
	f.readen.Add(uint64(n))
	metrics.FileReadenBytesTotal.WithLabelValues(f.path).Add(float64(n))

	pos := f.readPos.Add(int64(n))
	f.mu.Lock()
	size := f.size
	f.mu.Unlock()
	// A file whose size is an exact multiple of the caller's buffer never
	// returns a short read before io.EOF; reaching the size Load saw is
	// just as much "end" as handle.Read itself reporting io.EOF.
	end := size > 0 && pos >= size
	return n, end, nil
}

// Write appends data to the internal send queue. iofile's write runner
// flushes it to disk; Write itself never touches the descriptor.
func (f *File) Write(data []byte) *merrors.Error {
	if f.Mode != ModeWrite && f.Mode != ModeAppend {
		return merrors.New(merrors.Argument, "file %s: write requires ModeWrite or ModeAppend", f.path)
	}
	if f.erased.Load() {
		return merrors.New(merrors.Intern, "file %s: erased, no further writes", f.path)
	}
	f.sendMu.Lock()
	f.sendBuf = append(f.sendBuf, data...)
	f.sendMu.Unlock()
	f.queueing.Add(int64(len(data)))
	metrics.FileQueueingBytes.WithLabelValues(f.path).Set(float64(f.queueing.Load()))

	if f.flushing.CompareAndSwap(false, true) {
		if f.notifier != nil {
			if err := f.notifier.ArmFlush(f); err != nil {
				f.flushing.Store(false)
				return merrors.Wrap(merrors.System, err, "arm flush")
			}
		}
	}
	return nil
}

// Create queues a zero-byte write, which arms a flush without adding
// content. The file itself is created on disk by Load in ModeWrite or
// ModeAppend; nothing is truncated.
func (f *File) Create() *merrors.Error { return f.Write(nil) }

// Drain is called by iofile's write runner.
func (f *File) Drain() (sent int, remaining int, err error) {
	f.sendMu.Lock()
	buf := f.sendBuf
	f.sendMu.Unlock()
	if len(buf) == 0 {
		return 0, 0, nil
	}

	f.mu.Lock()
	handle := f.handle
	f.mu.Unlock()
	if handle == nil {
		return 0, len(buf), os.ErrClosed
	}

	n, err := handle.Write(buf)
	if err != nil {
		return 0, len(buf), err
	}

	f.sendMu.Lock()
	f.sendBuf = f.sendBuf[n:]
	remaining = len(f.sendBuf)
	f.sendMu.Unlock()

	f.written.Add(uint64(n))
	f.queueing.Add(-int64(n))
	metrics.FileWrittenBytesTotal.WithLabelValues(f.path).Add(float64(n))
	metrics.FileQueueingBytes.WithLabelValues(f.path).Set(float64(f.queueing.Load()))
	return n, remaining, nil
}

// MarkFlushed is called by iofile once the write queue has fully
// drained; it raises OnFlush(deletion=false).
func (f *File) MarkFlushed() {
	f.flushing.Store(false)
	f.OnFlush.Raise(false)
}

// Erase schedules deletion; iofile runs the actual unlink on a worker and
// calls EraseComplete when done.
func (f *File) Erase() *merrors.Error {
	if f.Mode != ModeWrite && f.Mode != ModeDelete {
		return merrors.New(merrors.Argument, "file %s: erase requires ModeWrite or ModeDelete", f.path)
	}
	if f.notifier == nil {
		err := f.PerformErase()
		f.EraseComplete(err)
		return nil
	}
	if err := f.notifier.ArmErase(f); err != nil {
		return merrors.Wrap(merrors.System, err, "arm erase")
	}
	return nil
}

// PerformErase performs the actual filesystem removal; called by iofile
// on a worker thread.
func (f *File) PerformErase() error {
	f.mu.Lock()
	handle := f.handle
	f.handle = nil
	f.mu.Unlock()
	if handle != nil {
		_ = handle.Close()
	}
	return os.RemoveAll(f.path)
}

// EraseComplete is called by iofile after PerformErase runs; it marks
// the file unusable and raises OnFlush(deletion=true).
func (f *File) EraseComplete(err error) {
	if err != nil {
		f.OnError.Raise(merrors.Wrap(merrors.System, err, "erase %s", f.path))
		return
	}
	f.erased.Store(true)
	f.OnFlush.Raise(true)
}

// Reset repositions the file for subsequent Read calls.
func (f *File) Reset(position int64) *merrors.Error {
	f.mu.Lock()
	handle := f.handle
	f.mu.Unlock()
	if handle == nil {
		return merrors.New(merrors.Intern, "file %s: not loaded", f.path)
	}
	if _, err := handle.Seek(position, io.SeekStart); err != nil {
		return merrors.Wrap(merrors.System, err, "seek %s", f.path)
	}
	f.readPos.Store(position)
	return nil
}

func classifyOpenError(err error) *merrors.Error {
	if os.IsNotExist(err) {
		return merrors.Wrap(merrors.Unfound, err, "open")
	}
	if os.IsPermission(err) {
		return merrors.Wrap(merrors.Permission, err, "open")
	}
	return merrors.Wrap(merrors.System, err, "open")
}

func classifyStatError(err error) *merrors.Error {
	if os.IsNotExist(err) {
		return merrors.Wrap(merrors.Unfound, err, "stat")
	}
	if os.IsPermission(err) {
		return merrors.Wrap(merrors.Permission, err, "stat")
	}
	return merrors.Wrap(merrors.System, err, "stat")
}
