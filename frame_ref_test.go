// frame_ref_test.go - Copy-on-write frame handle tests

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"sync"
	"testing"
)

func grayFrame(width, height int, value byte) FrameRef {
	buf := NewPixelBuffer(width, height, PixelFormatGray)
	buf.Fill(value)
	return NewFrameRef(buf)
}

func TestFrameRefSoleOwnerWritesInPlace(t *testing.T) {
	frame := grayFrame(4, 4, 0x10)
	defer frame.Release()

	before := frame.Read()
	frame.ReleaseRead()

	after := frame.Write()
	if before != after {
		t.Error("sole-owner write should not reallocate the buffer")
	}
	if frame.OwnershipCount() != 1 {
		t.Errorf("ownership count = %d, want 1", frame.OwnershipCount())
	}
}

func TestFrameRefSharedWriteCopies(t *testing.T) {
	original := grayFrame(4, 4, 0x10)
	defer original.Release()
	shared := original.Share()
	defer shared.Release()

	if original.OwnershipCount() != 2 {
		t.Fatalf("ownership count = %d, want 2", original.OwnershipCount())
	}

	shared.Write().Fill(0xEE)

	if got := original.Read().Pix[0]; got != 0x10 {
		t.Errorf("shared write leaked into sibling handle: pixel = 0x%02X, want 0x10", got)
	}
	original.ReleaseRead()
	if got := shared.Read().Pix[0]; got != 0xEE {
		t.Errorf("written handle pixel = 0x%02X, want 0xEE", got)
	}
	shared.ReleaseRead()

	// The write severed the sharing group.
	if original.OwnershipCount() != 1 || shared.OwnershipCount() != 1 {
		t.Errorf("ownership counts = %d, %d after severing write, want 1, 1",
			original.OwnershipCount(), shared.OwnershipCount())
	}
}

func TestFrameRefReadInFlightForcesCopy(t *testing.T) {
	frame := grayFrame(4, 4, 0x10)
	defer frame.Release()

	view := frame.Read()
	frame.Write().Fill(0xEE)
	if view.Pix[0] != 0x10 {
		t.Errorf("write mutated a buffer with a read in flight: pixel = 0x%02X", view.Pix[0])
	}
	frame.ReleaseRead()
}

func TestFrameRefReentrantRead(t *testing.T) {
	frame := grayFrame(4, 4, 0x10)
	defer frame.Release()

	a := frame.Read()
	b := frame.Read()
	if a != b {
		t.Error("re-entrant reads should see the same buffer")
	}
	if frame.ReaderCount() != 2 {
		t.Errorf("reader count = %d, want 2", frame.ReaderCount())
	}
	frame.ReleaseRead()
	frame.ReleaseRead()
	if frame.ReaderCount() != 0 {
		t.Errorf("reader count = %d after releases, want 0", frame.ReaderCount())
	}
}

func TestFrameRefLeakedReadDegradesButNeverCorrupts(t *testing.T) {
	frame := grayFrame(4, 4, 0x10)
	defer frame.Release()

	leaked := frame.Read() // never released

	frame.Write().Fill(0xEE)
	if leaked.Pix[0] != 0x10 {
		t.Error("leaked read observed a mutation")
	}
	if got := frame.Read().Pix[0]; got != 0xEE {
		t.Errorf("post-write pixel = 0x%02X, want 0xEE", got)
	}
	frame.ReleaseRead()
}

func TestFrameRefEmptyHandleIsInert(t *testing.T) {
	var frame FrameRef

	if !frame.IsEmpty() {
		t.Error("zero FrameRef should be empty")
	}
	if buf := frame.Read(); buf != nil {
		t.Error("empty handle Read should return nil")
	}
	frame.ReleaseRead()
	frame.Release()
	frame.Release()

	if w, h := frame.Dimensions(); w != 0 || h != 0 {
		t.Errorf("empty handle dimensions = %dx%d, want 0x0", w, h)
	}
	if frame.OwnershipCount() != 0 || frame.ReaderCount() != 0 {
		t.Error("empty handle should report zero counts")
	}

	// Write on an empty handle materializes a valid buffer.
	if frame.Write() == nil {
		t.Fatal("Write on empty handle returned nil")
	}
	frame.Release()
}

func TestFrameRefCloneIsIndependent(t *testing.T) {
	frame := grayFrame(4, 4, 0x10)
	defer frame.Release()

	clone := frame.Clone()
	defer clone.Release()

	if frame.OwnershipCount() != 1 {
		t.Errorf("Clone changed ownership count to %d", frame.OwnershipCount())
	}

	clone.Write().Fill(0xEE)
	if got := frame.Read().Pix[0]; got != 0x10 {
		t.Errorf("clone write leaked into original: pixel = 0x%02X", got)
	}
	frame.ReleaseRead()
}

func TestFrameRefReleaseFreesOnLastOwner(t *testing.T) {
	frame := grayFrame(4, 4, 0x10)
	shared := frame.Share()

	frame.Release()
	if shared.IsEmpty() {
		t.Fatal("buffer freed while a handle remains")
	}
	shared.Release()
	if !shared.IsEmpty() {
		t.Error("handle not empty after release")
	}
}

func TestFrameRefConcurrentReadersWithWrites(t *testing.T) {
	frame := grayFrame(16, 16, 0x42)
	defer frame.Release()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers on shared handles: each must only ever observe a uniform
	// buffer, regardless of the writer severing and mutating its copy.
	for r := 0; r < 4; r++ {
		reader := frame.Share()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Release()
			for {
				select {
				case <-stop:
					return
				default:
				}
				buf := reader.Read()
				first := buf.Pix[0]
				for _, v := range buf.Pix {
					if v != first {
						t.Error("reader observed a torn buffer")
						reader.ReleaseRead()
						return
					}
				}
				reader.ReleaseRead()
			}
		}()
	}

	writer := frame.Share()
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer writer.Release()
		for i := 0; i < 10000; i++ {
			select {
			case <-stop:
				return
			default:
			}
			writer.Write().Fill(byte(i))
		}
		close(stop)
	}()

	wg.Wait()
}
