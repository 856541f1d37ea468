// frame_handoff.go - Single-slot producer/consumer frame mailbox

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"sync"
	"sync/atomic"
)

// FrameHandoff passes the newest frame from the camera callback thread
// to the display thread through a single slot. Store never blocks and
// never queues: if the previous frame was not consumed yet it is
// replaced and counted as dropped, so the consumer always sees the
// freshest frame at the cost of losing stale ones.
//
// The contract is single-producer/single-consumer: one goroutine calls
// Store, one goroutine calls Consume. Concurrent Store from several
// goroutines (or concurrent Consume) needs an external lock and is not
// defended against here.
type FrameHandoff struct {
	mu        sync.Mutex
	frame     FrameRef
	pending   atomic.Bool
	generated atomic.Int64
	dropped   atomic.Int64
}

func NewFrameHandoff() *FrameHandoff {
	return &FrameHandoff{}
}

// Store places frame in the slot, taking ownership of the handle. An
// empty frame is ignored. A previous unconsumed frame is released and
// counted in FramesDropped.
func (h *FrameHandoff) Store(frame FrameRef) {
	if frame.IsEmpty() {
		return
	}

	h.mu.Lock()
	if h.pending.Load() {
		h.dropped.Add(1)
		h.frame.Release()
	}
	h.frame = frame
	h.pending.Store(true)
	h.generated.Add(1)
	h.mu.Unlock()
}

// Consume removes and returns the waiting frame. The caller owns the
// returned handle and must Release it when done. Returns false when the
// slot is empty.
func (h *FrameHandoff) Consume() (FrameRef, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.pending.Load() {
		return FrameRef{}, false
	}
	frame := h.frame
	h.frame = FrameRef{}
	h.pending.Store(false)
	return frame, true
}

func (h *FrameHandoff) HasUnconsumed() bool {
	return h.pending.Load()
}

// FramesDropped counts frames replaced before they were consumed.
func (h *FrameHandoff) FramesDropped() int64 {
	return h.dropped.Load()
}

// FramesGenerated counts every frame accepted by Store.
func (h *FrameHandoff) FramesGenerated() int64 {
	return h.generated.Load()
}

// Reset releases the slot and zeroes the counters. Only safe once the
// producer is guaranteed not to call Store concurrently.
func (h *FrameHandoff) Reset() {
	h.mu.Lock()
	h.frame.Release()
	h.pending.Store(false)
	h.generated.Store(0)
	h.dropped.Store(0)
	h.mu.Unlock()
}
