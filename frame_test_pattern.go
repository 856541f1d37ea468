// frame_test_pattern.go - Synthetic frame producer

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"sync/atomic"
	"time"
)

// renderTestPattern fills buf with a moving gradient tied to frameIndex.
// The pattern is format-aware so every supported pixel layout exercises
// the sink's normalization path.
func renderTestPattern(buf *PixelBuffer, frameIndex int) {
	if buf == nil || buf.IsEmpty() {
		return
	}

	bpp := buf.Format.BytesPerPixel()
	sweep := 0
	if buf.Width > 0 {
		sweep = frameIndex % buf.Width
	}

	for y := 0; y < buf.Height; y++ {
		row := y * buf.Stride()
		for x := 0; x < buf.Width; x++ {
			v := byte(x + y + frameIndex)
			if x == sweep {
				v = 0xFF
			}
			i := row + x*bpp
			switch buf.Format {
			case PixelFormatGray:
				buf.Pix[i] = v
			case PixelFormatBGR:
				buf.Pix[i] = v / 2 // B
				buf.Pix[i+1] = v   // G
				buf.Pix[i+2] = byte(y + frameIndex)
			default: // RGBA
				buf.Pix[i] = v
				buf.Pix[i+1] = byte(x + frameIndex)
				buf.Pix[i+2] = byte(y + frameIndex)
				buf.Pix[i+3] = 0xFF
			}
		}
	}
}

// TestPatternSource stands in for the camera callback thread: it
// assembles a fresh frame at the configured rate and publishes it
// through the context, together with a synthetic event count. One
// source per context.
type TestPatternSource struct {
	ctx        *CameraContext
	frameIndex atomic.Int64
	started    atomic.Bool
	stop       chan struct{}
	done       chan struct{}
}

func NewTestPatternSource(ctx *CameraContext) *TestPatternSource {
	return &TestPatternSource{ctx: ctx}
}

func (ts *TestPatternSource) Start() error {
	if !ts.started.CompareAndSwap(false, true) {
		return nil
	}
	cfg := ts.ctx.Config()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		ts.started.Store(false)
		return &VideoError{
			Operation: "pattern start",
			Details:   "invalid frame dimensions",
		}
	}

	ts.stop = make(chan struct{})
	ts.done = make(chan struct{})
	ts.ctx.MarkCameraStart()
	go ts.produceLoop(cfg)
	return nil
}

func (ts *TestPatternSource) produceLoop(cfg CameraConfig) {
	defer close(ts.done)

	fps := cfg.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ts.stop:
			return
		case <-ticker.C:
			idx := ts.frameIndex.Add(1)
			buf := NewPixelBuffer(cfg.Width, cfg.Height, cfg.Format)
			renderTestPattern(buf, int(idx))
			ts.ctx.PublishFrame(NewFrameRef(buf))

			// Each pattern frame pretends to carry one event per
			// column so the rate display has something to show.
			ts.ctx.RecordEvents(int64(cfg.Width), ts.ctx.Timing().LastFrameCameraTS())
		}
	}
}

// Stop halts production and waits for the producer goroutine to exit.
// Idempotent.
func (ts *TestPatternSource) Stop() {
	if !ts.started.CompareAndSwap(true, false) {
		return
	}
	close(ts.stop)
	<-ts.done
}

func (ts *TestPatternSource) IsStarted() bool {
	return ts.started.Load()
}

// FramesProduced counts frames handed to the context so far.
func (ts *TestPatternSource) FramesProduced() int64 {
	return ts.frameIndex.Load()
}
