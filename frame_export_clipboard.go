//go:build !headless

// frame_export_clipboard.go - System clipboard frame copy

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"bytes"
	"image/png"
	"sync"

	"golang.design/x/clipboard"
)

var (
	clipboardInitOnce sync.Once
	clipboardInitErr  error
)

// CopyFrameToClipboard places the frame on the system clipboard as PNG
// image data. The frame is borrowed, not consumed.
func CopyFrameToClipboard(frame FrameRef) error {
	clipboardInitOnce.Do(func() {
		clipboardInitErr = clipboard.Init()
	})
	if clipboardInitErr != nil {
		return &VideoError{
			Operation: "clipboard copy",
			Details:   "clipboard unavailable",
			Err:       clipboardInitErr,
		}
	}

	buf := frame.Read()
	defer frame.ReleaseRead()
	img, err := frameToImage(buf)
	if err != nil {
		return err
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return &VideoError{Operation: "clipboard copy", Err: err}
	}
	clipboard.Write(clipboard.FmtImage, encoded.Bytes())
	return nil
}
