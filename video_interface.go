// video_interface.go - Display surface and video output interfaces

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

// VideoError provides detailed error context for display operations
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

func (e *VideoError) Unwrap() error {
	return e.Err
}

type PixelFormat int

const (
	PixelFormatRGBA PixelFormat = iota
	PixelFormatGray
	PixelFormatBGR
)

// BytesPerPixel returns the per-pixel byte width of the format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatGray:
		return 1
	case PixelFormatBGR:
		return 3
	default:
		return 4
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatGray:
		return "gray"
	case PixelFormatBGR:
		return "bgr"
	default:
		return "rgba"
	}
}

// FrameSnapshot encapsulates the data needed to represent a complete frame
type FrameSnapshot struct {
	Buffer    []byte // Raw pixel data, row-major
	Width     int    // Frame width in pixels
	Height    int    // Frame height in pixels
	Format    PixelFormat
	Timestamp time.Time // When the snapshot was taken
}

// DisplayConfig contains hardware-independent configuration
type DisplayConfig struct {
	Width       int
	Height      int
	Scale       int // Integer scaling factor for output
	RefreshRate int // Target refresh rate in Hz
	VSync       bool
	Fullscreen  bool
}

// ClampScale bounds the integer window scale factor to a sane range.
func ClampScale(scale int) int {
	if scale < 1 {
		return 1
	}
	if scale > 8 {
		return 8
	}
	return scale
}

// TextureSurface is the GPU-resident destination of a frame upload. The
// texture is created lazily by EnsureSize and resized when the frame
// dimensions change. WritePixels expects tightly packed RGBA data of
// exactly width*height*4 bytes for the last EnsureSize dimensions.
type TextureSurface interface {
	EnsureSize(width, height int) error
	WritePixels(rgba []byte) error
	HandleID() int
	Size() (width, height int)
	Dispose()
}

// VideoOutput defines the minimal interface that display backends implement
type VideoOutput interface {
	Start() error
	Stop() error
	Close() error
	IsStarted() bool
	Done() <-chan struct{}

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig

	// Surface returns the texture surface frames are uploaded to.
	Surface() TextureSurface

	GetFrameCount() uint64
	GetRefreshRate() int
}

// Predefined video backend types
const (
	VIDEO_BACKEND_EBITEN = iota // Pure Go Ebiten backend
	VIDEO_BACKEND_MEMORY        // Offscreen software backend
)

// NewVideoOutput creates a new video output instance using the specified backend
func NewVideoOutput(backend int, ctx *CameraContext) (VideoOutput, error) {
	switch backend {
	case VIDEO_BACKEND_EBITEN:
		return NewEbitenOutput(ctx)
	case VIDEO_BACKEND_MEMORY:
		return NewMemoryOutput(ctx)
	}
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}
