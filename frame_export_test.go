// frame_export_test.go - Frame capture tests

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveFrameWritesDecodablePNG(t *testing.T) {
	buf := NewPixelBuffer(2, 1, PixelFormatGray)
	buf.Pix[0] = 0
	buf.Pix[1] = 255
	frame := NewFrameRef(buf)
	defer frame.Release()

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := SaveFrame(frame, path); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding saved frame: %v", err)
	}

	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 1 {
		t.Errorf("decoded size = %v, want 2x1", img.Bounds())
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("pixel (0,0) = %d,%d,%d, want black", r, g, b)
	}
	r, g, b, _ = img.At(1, 0).RGBA()
	if r != 0xFFFF || g != 0xFFFF || b != 0xFFFF {
		t.Errorf("pixel (1,0) = %d,%d,%d, want white", r, g, b)
	}
}

func TestSaveFrameRejectsEmptyFrame(t *testing.T) {
	var frame FrameRef
	err := SaveFrame(frame, filepath.Join(t.TempDir(), "frame.png"))
	if err == nil {
		t.Error("saving an empty frame should error")
	}
}

func TestFrameToImageConvertsBGR(t *testing.T) {
	buf := NewPixelBuffer(1, 1, PixelFormatBGR)
	copy(buf.Pix, []byte{10, 20, 30}) // B G R

	img, err := frameToImage(buf)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := img.At(0, 0).RGBA()
	if r>>8 != 30 || g>>8 != 20 || b>>8 != 10 || a>>8 != 255 {
		t.Errorf("converted pixel = %d,%d,%d,%d, want 30,20,10,255", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestSaveFrameWithMetadata(t *testing.T) {
	ctx, _ := newTestContext(false)
	dir := t.TempDir()

	// No frame uploaded yet.
	if _, err := SaveFrameWithMetadata(ctx, dir); err == nil {
		t.Error("capture before any upload should error")
	}

	ctx.MarkCameraStart()
	ctx.PublishFrame(taggedFrame(1))
	ctx.PublishFrame(taggedFrame(2))
	if !ctx.Present() {
		t.Fatal("Present failed")
	}

	path, err := SaveFrameWithMetadata(ctx, dir)
	if err != nil {
		t.Fatalf("SaveFrameWithMetadata: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("captured PNG missing: %v", err)
	}

	sidecar := strings.TrimSuffix(path, ".png") + ".json"
	data, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatalf("metadata sidecar missing: %v", err)
	}
	var meta CaptureMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}

	if meta.Width != 8 || meta.Height != 8 {
		t.Errorf("metadata size = %dx%d, want 8x8", meta.Width, meta.Height)
	}
	if meta.Format != "gray" {
		t.Errorf("metadata format = %q, want gray", meta.Format)
	}
	if meta.FramesGenerated != 2 || meta.FramesDropped != 1 {
		t.Errorf("metadata counters = %d generated, %d dropped, want 2 and 1",
			meta.FramesGenerated, meta.FramesDropped)
	}
	if meta.CapturedAt == "" {
		t.Error("metadata missing capture time")
	}
}
