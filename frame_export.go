// frame_export.go - Frame capture to disk and clipboard

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// frameToImage converts a pixel buffer to a stdlib image, applying the
// same channel normalization the texture sink uses for uploads.
func frameToImage(buf *PixelBuffer) (image.Image, error) {
	if buf == nil || buf.IsEmpty() {
		return nil, &VideoError{Operation: "frame export", Details: "empty frame"}
	}

	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			p := buf.PixelAt(x, y)
			var c color.RGBA
			switch buf.Format {
			case PixelFormatGray:
				c = color.RGBA{p[0], p[0], p[0], 0xFF}
			case PixelFormatBGR:
				c = color.RGBA{p[2], p[1], p[0], 0xFF}
			case PixelFormatRGBA:
				c = color.RGBA{p[0], p[1], p[2], p[3]}
			default:
				return nil, &VideoError{
					Operation: "frame export",
					Details:   fmt.Sprintf("unsupported pixel format %v", buf.Format),
				}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

// SaveFrame writes frame to path as a PNG. The frame is borrowed, not
// consumed; the caller keeps its reference.
func SaveFrame(frame FrameRef, path string) error {
	buf := frame.Read()
	defer frame.ReleaseRead()

	img, err := frameToImage(buf)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return &VideoError{Operation: "frame save", Details: path, Err: err}
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return &VideoError{Operation: "frame save", Details: path, Err: err}
	}
	return nil
}

// CaptureMetadata is the JSON sidecar written next to a captured frame.
type CaptureMetadata struct {
	CapturedAt      string `json:"captured_at"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Format          string `json:"format"`
	CameraTS        int64  `json:"camera_timestamp_us"`
	FramesGenerated int64  `json:"frames_generated"`
	FramesDropped   int64  `json:"frames_dropped"`
	FramesPresented int64  `json:"frames_presented"`
	TotalEvents     int64  `json:"total_events"`
	EventsPerSecond int64  `json:"events_per_second"`
}

// SaveFrameWithMetadata captures the context's most recent frame into
// dir under a timestamped name, with a JSON sidecar describing the
// pipeline state at capture time. Returns the PNG path.
func SaveFrameWithMetadata(ctx *CameraContext, dir string) (string, error) {
	frame := ctx.LastFrame()
	defer frame.Release()
	if frame.IsEmpty() {
		return "", &VideoError{Operation: "frame capture", Details: "no frame uploaded yet"}
	}

	now := time.Now()
	name := fmt.Sprintf("frame_%s.png", now.Format("20060102_150405.000"))
	path := filepath.Join(dir, name)
	if err := SaveFrame(frame, path); err != nil {
		return "", err
	}

	w, h := frame.Dimensions()
	stats := ctx.Stats()
	meta := CaptureMetadata{
		CapturedAt:      now.Format(time.RFC3339Nano),
		Width:           w,
		Height:          h,
		Format:          ctx.Config().Format.String(),
		CameraTS:        ctx.Timing().LastFrameCameraTS(),
		FramesGenerated: stats.FramesGenerated,
		FramesDropped:   stats.FramesDropped,
		FramesPresented: stats.FramesPresented,
		TotalEvents:     stats.TotalEvents,
		EventsPerSecond: stats.EventsPerSecond,
	}

	sidecar := strings.TrimSuffix(path, ".png") + ".json"
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", &VideoError{Operation: "frame capture", Details: sidecar, Err: err}
	}
	if err := os.WriteFile(sidecar, data, 0644); err != nil {
		return "", &VideoError{Operation: "frame capture", Details: sidecar, Err: err}
	}
	return path, nil
}
