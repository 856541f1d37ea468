// camera_context.go - Per-stream pipeline context

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

type CameraConfig struct {
	Width     int
	Height    int
	Format    PixelFormat
	TargetFPS int // display rate gate, 0 disables gating

	// TripleBuffered routes frames through the rotating three-slot
	// buffer; otherwise the single-slot mailbox is used and the upload
	// happens synchronously with consumption.
	TripleBuffered bool
}

// CameraContext owns the frame-sharing pipeline of one camera stream:
// mailbox, triple buffer, texture sink and the timing/metrics trackers.
// There is no global camera object; whoever assembles the pipeline owns
// the context and hands it to the producer callback and the display
// loop. Contexts are independent, one per stream.
//
// Exactly two threads use a context concurrently: the producer calls
// PublishFrame/RecordEvents, the consumer calls Present and the capture
// accessors. Reset requires both to have stopped.
type CameraContext struct {
	config  CameraConfig
	handoff *FrameHandoff
	triple  *TripleBuffer
	sink    *TextureSink
	timing  *FrameSync
	metrics *EventMetrics

	cameraStartUS atomic.Int64
	published     atomic.Int64
}

func NewCameraContext(config CameraConfig, surface TextureSurface) *CameraContext {
	return &CameraContext{
		config:  config,
		handoff: NewFrameHandoff(),
		triple:  NewTripleBuffer(),
		sink:    NewTextureSink(surface),
		timing:  NewFrameSync(),
		metrics: NewEventMetrics(),
	}
}

// MarkCameraStart records the stream's epoch; camera timestamps are
// microseconds relative to it.
func (ctx *CameraContext) MarkCameraStart() {
	ctx.cameraStartUS.Store(time.Now().UnixMicro())
}

// PublishFrame hands a freshly assembled frame to the display side,
// taking ownership of the handle. Never blocks; called from the camera
// callback thread. Empty frames are ignored by the slot it lands in.
func (ctx *CameraContext) PublishFrame(frame FrameRef) {
	nowUS := time.Now().UnixMicro()
	cameraTS := int64(0)
	if start := ctx.cameraStartUS.Load(); start != 0 {
		cameraTS = nowUS - start
	}
	ctx.timing.OnFrameGenerated(cameraTS, nowUS)
	ctx.published.Add(1)

	if ctx.config.TripleBuffered {
		ctx.triple.Submit(frame)
	} else {
		ctx.handoff.Store(frame)
	}
}

// RecordEvents accounts an event batch whose newest camera timestamp is
// lastEventTS. Stale batches are rejected and not counted.
func (ctx *CameraContext) RecordEvents(count, lastEventTS int64) bool {
	nowUS := time.Now().UnixMicro()
	if batchTooOld(lastEventTS, ctx.cameraStartUS.Load(), nowUS) {
		fmt.Printf("Warning: skipping stale event batch (camera ts %dus)\n", lastEventTS)
		return false
	}
	ctx.metrics.RecordEvents(count, lastEventTS)
	return true
}

// Present runs one presentation cycle on the display thread: rate-gates
// against the configured target FPS, moves the newest frame out of the
// hand-off path and uploads it to the texture surface. Reports whether
// a frame reached the surface this cycle.
func (ctx *CameraContext) Present() bool {
	nowUS := time.Now().UnixMicro()
	if !ctx.timing.ShouldDisplay(nowUS, ctx.config.TargetFPS) {
		return false
	}

	presented := false
	if ctx.config.TripleBuffered {
		presented = ctx.triple.Advance(func(frame FrameRef) error {
			return ctx.sink.Upload(frame)
		})
	} else {
		frame, ok := ctx.handoff.Consume()
		if ok {
			err := ctx.sink.Upload(frame)
			frame.Release()
			if err != nil {
				fmt.Printf("Error uploading frame: %v\n", err)
				return false
			}
			presented = true
		}
	}

	if presented {
		ctx.timing.OnFrameDisplayed(nowUS)
	}
	return presented
}

// LastFrame is a zero-copy handle to the most recently uploaded frame;
// the caller must Release it.
func (ctx *CameraContext) LastFrame() FrameRef {
	return ctx.sink.LastFrame()
}

// Snapshot copies the most recently uploaded frame out of the pipeline.
func (ctx *CameraContext) Snapshot() (FrameSnapshot, error) {
	return ctx.sink.Snapshot()
}

// PipelineStats is a point-in-time snapshot of the pipeline counters.
type PipelineStats struct {
	FramesGenerated int64
	FramesDropped   int64
	FramesPresented int64
	Uploads         int64
	TotalEvents     int64
	EventsPerSecond int64
	PresentLatency  time.Duration
}

func (ctx *CameraContext) Stats() PipelineStats {
	return PipelineStats{
		FramesGenerated: ctx.published.Load(),
		FramesDropped:   ctx.handoff.FramesDropped(),
		FramesPresented: ctx.triple.FramesPresented(),
		Uploads:         ctx.sink.Uploads(),
		TotalEvents:     ctx.metrics.TotalEvents(),
		EventsPerSecond: ctx.metrics.EventsPerSecond(),
		PresentLatency:  ctx.triple.LastPresentLatency(),
	}
}

func (ctx *CameraContext) Config() CameraConfig {
	return ctx.config
}

func (ctx *CameraContext) Handoff() *FrameHandoff {
	return ctx.handoff
}

func (ctx *CameraContext) Triple() *TripleBuffer {
	return ctx.triple
}

func (ctx *CameraContext) Sink() *TextureSink {
	return ctx.sink
}

func (ctx *CameraContext) Timing() *FrameSync {
	return ctx.timing
}

func (ctx *CameraContext) Metrics() *EventMetrics {
	return ctx.metrics
}

// Reset returns every pipeline component to its initial state. Only
// safe after the producer and display threads have stopped; idempotent.
func (ctx *CameraContext) Reset() {
	ctx.handoff.Reset()
	ctx.triple.Reset()
	ctx.sink.Reset()
	ctx.timing.Reset()
	ctx.metrics.Reset()
	ctx.cameraStartUS.Store(0)
	ctx.published.Store(0)
}
