// video_texture_sink.go - Frame normalization and texture upload

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"time"
)

// TextureSink uploads frames to a TextureSurface, converting grayscale
// and BGR input to the RGBA layout the surface expects. The texture is
// created lazily on first upload and resized when frame dimensions
// change. The most recent frame is retained without copying so capture
// and export can read it back.
//
// A failed upload leaves the sink exactly as it was: previous texture,
// previous dimensions, previous cached frame.
//
// Consumer thread only; the sink holds no locks.
type TextureSink struct {
	surface   TextureSurface
	width     int
	height    int
	lastFrame FrameRef
	uploads   int64
	scratch   []byte // conversion buffer, reused between uploads
}

func NewTextureSink(surface TextureSurface) *TextureSink {
	return &TextureSink{surface: surface}
}

// Surface exposes the upload destination so a display backend can draw
// it.
func (s *TextureSink) Surface() TextureSurface {
	return s.surface
}

// Upload normalizes frame to RGBA and writes it to the surface, then
// retains the frame for readback. Empty frames are a no-op.
func (s *TextureSink) Upload(frame FrameRef) error {
	if frame.IsEmpty() {
		return nil
	}
	if s.surface == nil {
		return &VideoError{Operation: "upload", Details: "sink has no surface"}
	}

	buf := frame.Read()
	defer frame.ReleaseRead()

	width, height := buf.Dimensions()
	rgba, err := s.normalize(buf)
	if err != nil {
		return err
	}

	if err := s.surface.EnsureSize(width, height); err != nil {
		return &VideoError{Operation: "upload", Details: "texture allocation", Err: err}
	}
	if err := s.surface.WritePixels(rgba); err != nil {
		return &VideoError{Operation: "upload", Details: "pixel transfer", Err: err}
	}

	s.width = width
	s.height = height
	s.lastFrame.Release()
	s.lastFrame = frame.Share()
	s.uploads++
	return nil
}

// normalize converts buf to tightly packed RGBA, reusing the sink's
// scratch buffer. RGBA input is returned as-is without copying.
func (s *TextureSink) normalize(buf *PixelBuffer) ([]byte, error) {
	switch buf.Format {
	case PixelFormatRGBA:
		return buf.Pix, nil
	case PixelFormatGray:
		out := s.scratchFor(buf.Width * buf.Height * 4)
		for i, v := range buf.Pix {
			o := i * 4
			out[o] = v
			out[o+1] = v
			out[o+2] = v
			out[o+3] = 0xFF
		}
		return out, nil
	case PixelFormatBGR:
		out := s.scratchFor(buf.Width * buf.Height * 4)
		for i := 0; i*3 < len(buf.Pix); i++ {
			src := i * 3
			dst := i * 4
			out[dst] = buf.Pix[src+2]
			out[dst+1] = buf.Pix[src+1]
			out[dst+2] = buf.Pix[src]
			out[dst+3] = 0xFF
		}
		return out, nil
	}
	return nil, &VideoError{
		Operation: "upload",
		Details:   fmt.Sprintf("unsupported pixel format: %d", buf.Format),
	}
}

func (s *TextureSink) scratchFor(size int) []byte {
	if cap(s.scratch) < size {
		s.scratch = make([]byte, size)
	}
	return s.scratch[:size]
}

// Handle returns the surface's opaque texture id, 0 before first upload.
func (s *TextureSink) Handle() int {
	if s.surface == nil {
		return 0
	}
	return s.surface.HandleID()
}

func (s *TextureSink) Dimensions() (width, height int) {
	return s.width, s.height
}

// LastFrame returns a shared handle to the most recently uploaded frame
// without copying pixel data. The caller must Release it; callers that
// need the pixels to outlive the next upload should Read under a guard
// or Clone.
func (s *TextureSink) LastFrame() FrameRef {
	return s.lastFrame.Share()
}

// Uploads counts successful uploads since creation or Reset.
func (s *TextureSink) Uploads() int64 {
	return s.uploads
}

// Snapshot copies the cached frame into a standalone FrameSnapshot.
func (s *TextureSink) Snapshot() (FrameSnapshot, error) {
	if s.lastFrame.IsEmpty() {
		return FrameSnapshot{}, &VideoError{Operation: "snapshot", Details: "no frame uploaded"}
	}
	buf := s.lastFrame.Read()
	defer s.lastFrame.ReleaseRead()

	snap := FrameSnapshot{
		Buffer:    make([]byte, len(buf.Pix)),
		Width:     buf.Width,
		Height:    buf.Height,
		Format:    buf.Format,
		Timestamp: time.Now(),
	}
	copy(snap.Buffer, buf.Pix)
	return snap, nil
}

// Reset releases the texture and the cached frame. Idempotent; the sink
// accepts uploads again afterwards.
func (s *TextureSink) Reset() {
	if s.surface != nil {
		s.surface.Dispose()
	}
	s.lastFrame.Release()
	s.width = 0
	s.height = 0
	s.uploads = 0
}
