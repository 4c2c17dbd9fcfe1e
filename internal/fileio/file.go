// Package fileio provides the low-level IO primitives of the engine: a
// thread-safe positioned file, fixed-width big-endian encoding helpers and
// a parallel bulk byte swap.
package fileio

import (
	"fmt"
	"io"
	"sync"

	"github.com/gopsd/psd/internal/errdefs"
)

// Source is the handle a File reads from. os.File and bytes.Reader both
// satisfy it. ReadAt must be safe for concurrent use, which both provide
// (pread on files, slice indexing in memory); it stands in for the
// memory-mapped shared-read path.
type Source interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// File wraps a seekable stream with a mutex-guarded sequential cursor and
// a recorded size. Sequential Read/Write/Skip/SetOffset share the cursor;
// ReadAt bypasses it and may be called concurrently from any worker.
// Reads or writes beyond the recorded size fail with ErrIoOverflow.
type File struct {
	mu     sync.Mutex
	src    Source
	dst    io.Writer
	offset uint64
	size   uint64
}

// NewReader creates a File over a source of the given total size.
func NewReader(src Source, size uint64) *File {
	return &File{src: src, size: size}
}

// NewWriter creates a File that streams to dst with the given planned
// size. A zero plannedSize means unbounded.
func NewWriter(dst io.Writer, plannedSize uint64) *File {
	return &File{dst: dst, size: plannedSize}
}

// Size returns the recorded size of the file.
func (f *File) Size() uint64 {
	return f.size
}

// Offset returns the current cursor position.
func (f *File) Offset() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset
}

// SetOffset moves the sequential cursor. Only valid on readers.
func (f *File) SetOffset(offset uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setOffsetLocked(offset)
}

func (f *File) setOffsetLocked(offset uint64) error {
	if offset > f.size {
		return fmt.Errorf("%w: seek to %d beyond size %d", errdefs.ErrIoOverflow, offset, f.size)
	}
	if _, err := f.src.Seek(int64(offset), io.SeekStart); err != nil {
		return err
	}
	f.offset = offset
	return nil
}

// Skip advances the cursor by n bytes without touching the data.
func (f *File) Skip(n uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setOffsetLocked(f.offset + n)
}

// Read fills buf from the cursor position and advances it.
func (f *File) Read(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offset+uint64(len(buf)) > f.size {
		return fmt.Errorf("%w: read of %d bytes at offset %d beyond size %d",
			errdefs.ErrIoOverflow, len(buf), f.offset, f.size)
	}
	if _, err := io.ReadFull(f.src, buf); err != nil {
		return err
	}
	f.offset += uint64(len(buf))
	return nil
}

// ReadAt fills buf from the given absolute offset without moving the
// sequential cursor. Safe for concurrent use.
func (f *File) ReadAt(buf []byte, offset uint64) error {
	if offset+uint64(len(buf)) > f.size {
		return fmt.Errorf("%w: read of %d bytes at offset %d beyond size %d",
			errdefs.ErrIoOverflow, len(buf), offset, f.size)
	}
	if _, err := f.src.ReadAt(buf, int64(offset)); err != nil {
		return err
	}
	return nil
}

// Write appends buf at the cursor position and advances it. A writer with
// a planned size rejects writes past it.
func (f *File) Write(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.size > 0 && f.offset+uint64(len(buf)) > f.size {
		return fmt.Errorf("%w: write of %d bytes at offset %d beyond planned size %d",
			errdefs.ErrIoOverflow, len(buf), f.offset, f.size)
	}
	if _, err := f.dst.Write(buf); err != nil {
		return err
	}
	f.offset += uint64(len(buf))
	return nil
}

// WritePadding writes n zero bytes.
func (f *File) WritePadding(n uint64) error {
	if n == 0 {
		return nil
	}
	return f.Write(make([]byte, n))
}
