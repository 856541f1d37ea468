// frame_ref.go - Ownership-counted, copy-on-write frame handles

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import "sync/atomic"

// frameData is the shared backing of one or more FrameRef handles.
type frameData struct {
	buf     *PixelBuffer
	owners  atomic.Int32 // FrameRef handles sharing this backing
	readers atomic.Int32 // reads in flight via Read/ReleaseRead
}

// FrameRef is a shared handle to one pixel buffer. Sharing is explicit:
// Share returns a second handle over the same backing and bumps the
// ownership count, Release drops it. Write mutates in place only when
// the handle is the sole owner and no read is in flight; otherwise it
// first deep-copies the backing, severing the handle from its sharing
// group. A zero FrameRef holds no buffer and every operation on it is a
// valid no-op.
//
// Passing a FrameRef by value to a function is a borrow, like passing a
// plain pointer: it does not change the ownership count. A callee that
// wants to keep the frame past its return must Share it.
//
// Concurrency: Read/ReleaseRead are safe from any number of goroutines
// holding handles over the same backing, and re-entrant from one
// goroutine. Each individual handle, however, is single-goroutine state:
// Write, Share, Release and Reset on the same handle must not race with
// each other. A read held open across a Write on a sibling handle simply
// forces that Write to copy; a Read that is never released degrades
// every future Write to a copy but corrupts nothing.
type FrameRef struct {
	data *frameData
}

// NewFrameRef wraps buf without copying pixel data. The caller hands
// over ownership of buf and must not touch it afterwards.
func NewFrameRef(buf *PixelBuffer) FrameRef {
	d := &frameData{buf: buf}
	d.owners.Store(1)
	return FrameRef{data: d}
}

// NewFrameRefCopy wraps a deep copy of buf, leaving buf to the caller.
func NewFrameRefCopy(buf *PixelBuffer) FrameRef {
	return NewFrameRef(buf.Clone())
}

// Share returns a new handle over the same backing buffer.
func (f *FrameRef) Share() FrameRef {
	if f.data == nil {
		return FrameRef{}
	}
	f.data.owners.Add(1)
	return FrameRef{data: f.data}
}

// Release drops this handle's ownership. When the last handle releases,
// the backing buffer is freed. The handle is empty afterwards.
func (f *FrameRef) Release() {
	if f.data == nil {
		return
	}
	if f.data.owners.Add(-1) == 0 {
		f.data.buf = nil
	}
	f.data = nil
}

// Reset is Release under the name the rest of the pipeline uses.
func (f *FrameRef) Reset() {
	f.Release()
}

// Read returns a read-only view of the buffer and marks a read in
// flight. Every Read must be paired with exactly one ReleaseRead. An
// empty handle returns nil, which is itself an inert PixelBuffer.
func (f *FrameRef) Read() *PixelBuffer {
	if f.data == nil {
		return nil
	}
	f.data.readers.Add(1)
	return f.data.buf
}

// ReleaseRead ends a read begun by Read. The view obtained from that
// Read must not be used afterwards.
func (f *FrameRef) ReleaseRead() {
	if f.data != nil {
		f.data.readers.Add(-1)
	}
}

// Write returns a mutable view of the buffer. If the backing is shared
// with other handles or has reads in flight it is deep-copied first, so
// the mutation is never observable through any other handle. The
// exclusivity check is a single decision point: sole owner and zero
// readers means mutate in place.
func (f *FrameRef) Write() *PixelBuffer {
	if f.data == nil {
		d := &frameData{buf: &PixelBuffer{}}
		d.owners.Store(1)
		f.data = d
		return d.buf
	}
	if f.data.owners.Load() > 1 || f.data.readers.Load() > 0 {
		d := &frameData{buf: f.data.buf.Clone()}
		d.owners.Store(1)
		f.data.owners.Add(-1)
		f.data = d
	}
	if f.data.buf == nil {
		f.data.buf = &PixelBuffer{}
	}
	return f.data.buf
}

// Clone returns an independently-mutable deep copy, regardless of the
// copy-on-write trigger.
func (f *FrameRef) Clone() FrameRef {
	if f.IsEmpty() {
		return FrameRef{}
	}
	return NewFrameRef(f.data.buf.Clone())
}

func (f *FrameRef) IsEmpty() bool {
	return f.data == nil || f.data.buf.IsEmpty()
}

func (f *FrameRef) Dimensions() (width, height int) {
	if f.data == nil {
		return 0, 0
	}
	return f.data.buf.Dimensions()
}

// OwnershipCount reports how many handles share the backing buffer.
// Diagnostic only.
func (f *FrameRef) OwnershipCount() int {
	if f.data == nil {
		return 0
	}
	return int(f.data.owners.Load())
}

// ReaderCount reports the reads currently in flight. Diagnostic only.
func (f *FrameRef) ReaderCount() int {
	if f.data == nil {
		return 0
	}
	return int(f.data.readers.Load())
}
