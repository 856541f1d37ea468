// frame_pixel_buffer.go - Raw 2-D pixel buffer produced by the frame generator

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

// PixelBuffer is one frame's worth of row-major pixel data. The event
// decoder (or a synthetic source) produces these; once a buffer has been
// wrapped in a FrameRef it must be treated as immutable by the producer.
// A nil or zero-sized buffer is a valid, inert value.
type PixelBuffer struct {
	Width  int
	Height int
	Format PixelFormat
	Pix    []byte // len == Width * Height * Format.BytesPerPixel()
}

// NewPixelBuffer allocates a zeroed buffer of the given dimensions.
func NewPixelBuffer(width, height int, format PixelFormat) *PixelBuffer {
	if width <= 0 || height <= 0 {
		return &PixelBuffer{Format: format}
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]byte, width*height*format.BytesPerPixel()),
	}
}

// NewPixelBufferFrom adopts pix without copying. The caller hands over
// ownership of the slice.
func NewPixelBufferFrom(width, height int, format PixelFormat, pix []byte) *PixelBuffer {
	return &PixelBuffer{Width: width, Height: height, Format: format, Pix: pix}
}

func (b *PixelBuffer) IsEmpty() bool {
	return b == nil || b.Width <= 0 || b.Height <= 0 || len(b.Pix) == 0
}

// Stride returns the number of bytes per row.
func (b *PixelBuffer) Stride() int {
	if b == nil {
		return 0
	}
	return b.Width * b.Format.BytesPerPixel()
}

func (b *PixelBuffer) Dimensions() (width, height int) {
	if b == nil {
		return 0, 0
	}
	return b.Width, b.Height
}

// Clone returns a deep copy sharing no storage with the receiver.
func (b *PixelBuffer) Clone() *PixelBuffer {
	if b == nil {
		return nil
	}
	clone := &PixelBuffer{Width: b.Width, Height: b.Height, Format: b.Format}
	if len(b.Pix) > 0 {
		clone.Pix = make([]byte, len(b.Pix))
		copy(clone.Pix, b.Pix)
	}
	return clone
}

// Fill sets every pixel to the given value. The value must have exactly
// one byte per channel; short or long values are ignored.
func (b *PixelBuffer) Fill(pixel ...byte) {
	if b.IsEmpty() || len(pixel) != b.Format.BytesPerPixel() {
		return
	}
	bpp := len(pixel)
	for i := 0; i < len(b.Pix); i += bpp {
		copy(b.Pix[i:i+bpp], pixel)
	}
}

// SetPixel writes one pixel. Out-of-bounds coordinates are ignored.
func (b *PixelBuffer) SetPixel(x, y int, pixel ...byte) {
	if b.IsEmpty() || x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	bpp := b.Format.BytesPerPixel()
	if len(pixel) != bpp {
		return
	}
	offset := (y*b.Width + x) * bpp
	copy(b.Pix[offset:offset+bpp], pixel)
}

// PixelAt returns a view of one pixel's bytes, or nil when out of bounds.
// The returned slice aliases the buffer.
func (b *PixelBuffer) PixelAt(x, y int) []byte {
	if b.IsEmpty() || x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return nil
	}
	bpp := b.Format.BytesPerPixel()
	offset := (y*b.Width + x) * bpp
	return b.Pix[offset : offset+bpp]
}
