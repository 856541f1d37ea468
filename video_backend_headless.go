//go:build headless

package main

// Headless builds route the default backend to the in-memory output so
// the pipeline runs without a display server.

func NewEbitenOutput(ctx *CameraContext) (VideoOutput, error) {
	return NewMemoryOutput(ctx)
}

func newDisplaySurface() TextureSurface {
	return NewMemorySurface()
}
