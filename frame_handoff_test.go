// frame_handoff_test.go - Single-slot mailbox tests

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"sync"
	"testing"
)

// taggedFrame embeds seq in the first eight bytes and fills the rest
// with a byte derived from it, so a torn mixture of two frames is
// detectable.
func taggedFrame(seq uint64) FrameRef {
	buf := NewPixelBuffer(8, 8, PixelFormatGray)
	binary.BigEndian.PutUint64(buf.Pix, seq)
	for i := 8; i < len(buf.Pix); i++ {
		buf.Pix[i] = byte(seq)
	}
	return NewFrameRef(buf)
}

func frameTag(t *testing.T, frame FrameRef) uint64 {
	t.Helper()
	buf := frame.Read()
	defer frame.ReleaseRead()

	seq := binary.BigEndian.Uint64(buf.Pix)
	for i := 8; i < len(buf.Pix); i++ {
		if buf.Pix[i] != byte(seq) {
			// Errorf, not Fatalf: this helper also runs on consumer
			// goroutines in the race tests.
			t.Errorf("torn frame: tag %d but body byte 0x%02X at %d", seq, buf.Pix[i], i)
			break
		}
	}
	return seq
}

func TestHandoffStoreConsume(t *testing.T) {
	h := NewFrameHandoff()

	h.Store(taggedFrame(7))
	if !h.HasUnconsumed() {
		t.Fatal("slot should hold a frame after Store")
	}

	frame, ok := h.Consume()
	if !ok {
		t.Fatal("Consume returned no frame")
	}
	if got := frameTag(t, frame); got != 7 {
		t.Errorf("consumed tag = %d, want 7", got)
	}
	frame.Release()

	if h.HasUnconsumed() {
		t.Error("slot should be empty after Consume")
	}
	if _, ok := h.Consume(); ok {
		t.Error("second Consume should return nothing")
	}
}

func TestHandoffDropAccounting(t *testing.T) {
	h := NewFrameHandoff()

	const n = 10
	for i := 0; i < n; i++ {
		h.Store(taggedFrame(uint64(i)))
	}

	if got := h.FramesGenerated(); got != n {
		t.Errorf("frames generated = %d, want %d", got, n)
	}
	if got := h.FramesDropped(); got != n-1 {
		t.Errorf("frames dropped = %d, want %d", got, n-1)
	}

	frame, ok := h.Consume()
	if !ok {
		t.Fatal("Consume returned no frame")
	}
	if got := frameTag(t, frame); got != n-1 {
		t.Errorf("survivor tag = %d, want %d (only the last store survives)", got, n-1)
	}
	frame.Release()
}

func TestHandoffIgnoresEmptyFrames(t *testing.T) {
	h := NewFrameHandoff()

	h.Store(FrameRef{})
	h.Store(NewFrameRef(NewPixelBuffer(0, 0, PixelFormatGray)))

	if h.HasUnconsumed() {
		t.Error("empty frames must not occupy the slot")
	}
	if h.FramesGenerated() != 0 || h.FramesDropped() != 0 {
		t.Error("empty frames must not move the counters")
	}
}

func TestHandoffResetIsIdempotentAndReusable(t *testing.T) {
	h := NewFrameHandoff()
	h.Store(taggedFrame(1))
	h.Store(taggedFrame(2))

	h.Reset()
	h.Reset()

	if h.HasUnconsumed() || h.FramesGenerated() != 0 || h.FramesDropped() != 0 {
		t.Error("Reset should empty the slot and zero the counters")
	}

	h.Store(taggedFrame(3))
	frame, ok := h.Consume()
	if !ok {
		t.Fatal("slot unusable after Reset")
	}
	if got := frameTag(t, frame); got != 3 {
		t.Errorf("post-reset tag = %d, want 3", got)
	}
	frame.Release()
}

func TestHandoffProducerConsumerNoTornReads(t *testing.T) {
	h := NewFrameHandoff()

	const frames = 5000
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for seq := uint64(1); seq <= frames; seq++ {
			h.Store(taggedFrame(seq))
		}
	}()

	var lastSeen uint64
	wg.Add(1)
	go func() {
		defer wg.Done()
		for lastSeen < frames {
			frame, ok := h.Consume()
			if !ok {
				continue
			}
			seq := frameTag(t, frame)
			frame.Release()
			if seq < lastSeen {
				t.Errorf("tag went backwards: %d after %d", seq, lastSeen)
				return
			}
			lastSeen = seq
		}
	}()

	wg.Wait()

	if got := h.FramesGenerated(); got != frames {
		t.Errorf("frames generated = %d, want %d", got, frames)
	}
	consumed := frames - h.FramesDropped()
	if consumed < 1 {
		t.Errorf("dropped %d of %d frames, consumer saw none", h.FramesDropped(), frames)
	}
}
