// video_surface_memory.go - Offscreen software texture surface

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync/atomic"
	"time"
)

var nextSurfaceID atomic.Int64

// MemorySurface is a software TextureSurface. It backs the memory video
// output and stands in for a GPU texture wherever no window exists.
type MemorySurface struct {
	id     int
	width  int
	height int
	pixels []byte
	writes int64
}

func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

func (ms *MemorySurface) EnsureSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	if ms.width == width && ms.height == height && ms.pixels != nil {
		return nil
	}
	ms.width = width
	ms.height = height
	ms.pixels = make([]byte, width*height*4)
	if ms.id == 0 {
		ms.id = int(nextSurfaceID.Add(1))
	}
	return nil
}

func (ms *MemorySurface) WritePixels(rgba []byte) error {
	if ms.pixels == nil {
		return fmt.Errorf("surface not allocated")
	}
	if len(rgba) != len(ms.pixels) {
		return fmt.Errorf("pixel data is %d bytes, surface wants %d", len(rgba), len(ms.pixels))
	}
	copy(ms.pixels, rgba)
	ms.writes++
	return nil
}

func (ms *MemorySurface) HandleID() int {
	return ms.id
}

func (ms *MemorySurface) Size() (width, height int) {
	return ms.width, ms.height
}

// Pixels returns the surface's RGBA contents. The slice aliases the
// surface and is invalidated by the next EnsureSize.
func (ms *MemorySurface) Pixels() []byte {
	return ms.pixels
}

func (ms *MemorySurface) Writes() int64 {
	return ms.writes
}

func (ms *MemorySurface) Dispose() {
	ms.pixels = nil
	ms.width = 0
	ms.height = 0
	ms.writes = 0
}

// MemoryOutput is a windowless VideoOutput driving a CameraContext from
// a plain goroutine at the configured refresh rate. Used headless and in
// tests.
type MemoryOutput struct {
	ctx        *CameraContext
	surface    *MemorySurface
	config     DisplayConfig
	started    atomic.Bool
	frameCount atomic.Uint64
	done       chan struct{}
	stop       chan struct{}
}

func NewMemoryOutput(ctx *CameraContext) (VideoOutput, error) {
	// Draw into the context's own surface when it has one; a second
	// surface would never see the uploads.
	surface := NewMemorySurface()
	if ctx != nil {
		if ms, ok := ctx.Sink().Surface().(*MemorySurface); ok {
			surface = ms
		}
	}
	return &MemoryOutput{
		ctx:     ctx,
		surface: surface,
		config:  DisplayConfig{RefreshRate: 60, Scale: 1},
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}, nil
}

func (mo *MemoryOutput) Start() error {
	if !mo.started.CompareAndSwap(false, true) {
		return nil
	}
	mo.stop = make(chan struct{})
	mo.done = make(chan struct{})
	go mo.presentLoop()
	return nil
}

func (mo *MemoryOutput) presentLoop() {
	defer close(mo.done)
	ticker := time.NewTicker(time.Second / time.Duration(mo.GetRefreshRate()))
	defer ticker.Stop()
	for {
		select {
		case <-mo.stop:
			return
		case <-ticker.C:
			if mo.ctx != nil {
				if mo.ctx.Present() {
					mo.frameCount.Add(1)
				}
			}
		}
	}
}

func (mo *MemoryOutput) Stop() error {
	if mo.started.CompareAndSwap(true, false) {
		close(mo.stop)
		<-mo.done
	}
	return nil
}

func (mo *MemoryOutput) Close() error {
	return mo.Stop()
}

func (mo *MemoryOutput) IsStarted() bool {
	return mo.started.Load()
}

func (mo *MemoryOutput) Done() <-chan struct{} {
	return mo.done
}

func (mo *MemoryOutput) SetDisplayConfig(config DisplayConfig) error {
	mo.config = config
	return nil
}

func (mo *MemoryOutput) GetDisplayConfig() DisplayConfig {
	return mo.config
}

func (mo *MemoryOutput) Surface() TextureSurface {
	return mo.surface
}

func (mo *MemoryOutput) GetFrameCount() uint64 {
	return mo.frameCount.Load()
}

func (mo *MemoryOutput) GetRefreshRate() int {
	if mo.config.RefreshRate == 0 {
		return 60
	}
	return mo.config.RefreshRate
}
