// main.go - Main entry point for the Reliability Testing Camera viewer

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147mReliability Testing Camera\033[0m")
	fmt.Println("\nLock-free frame sharing and presentation pipeline for event camera streams.")
	fmt.Println("(c) 2025 - 2026 W. Wagner")
	fmt.Println("https://github.com/wwagner/ReliabilityTestingCamera")
	fmt.Println("License: GPLv3 or later")
}

func parsePixelFormat(value string) (PixelFormat, error) {
	switch value {
	case "gray":
		return PixelFormatGray, nil
	case "bgr":
		return PixelFormatBGR, nil
	case "rgba":
		return PixelFormatRGBA, nil
	}
	return 0, fmt.Errorf("unknown pixel format %q (want gray, bgr or rgba)", value)
}

func main() {
	boilerPlate()

	var (
		width      int
		height     int
		fps        int
		scale      int
		formatName string
		single     bool
		offscreen  bool
		fullscreen bool
		captureDir string
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&width, "width", 640, "Frame width in pixels")
	flagSet.IntVar(&height, "height", 480, "Frame height in pixels")
	flagSet.IntVar(&fps, "fps", 60, "Target display rate")
	flagSet.IntVar(&scale, "scale", 1, "Integer window scale factor")
	flagSet.StringVar(&formatName, "format", "bgr", "Frame pixel format: gray, bgr or rgba")
	flagSet.BoolVar(&single, "single", false, "Use the single-slot hand-off instead of triple buffering")
	flagSet.BoolVar(&offscreen, "offscreen", false, "Run without a window (in-memory surface)")
	flagSet.BoolVar(&fullscreen, "fullscreen", false, "Start fullscreen")
	flagSet.StringVar(&captureDir, "capture-dir", ".", "Directory for captured frames")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./reliability_testing_camera [-width 640] [-height 480] [-fps 60] [-format bgr] [-single] [-offscreen]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if width <= 0 || height <= 0 {
		fmt.Println("Error: frame dimensions must be positive")
		os.Exit(1)
	}
	format, err := parsePixelFormat(formatName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	backend := VIDEO_BACKEND_EBITEN
	var surface TextureSurface
	if offscreen {
		backend = VIDEO_BACKEND_MEMORY
		surface = NewMemorySurface()
	} else {
		surface = newDisplaySurface()
	}

	ctx := NewCameraContext(CameraConfig{
		Width:          width,
		Height:         height,
		Format:         format,
		TargetFPS:      fps,
		TripleBuffered: !single,
	}, surface)

	output, err := NewVideoOutput(backend, ctx)
	if err != nil {
		fmt.Printf("Failed to initialize video: %v\n", err)
		os.Exit(1)
	}
	if c, ok := output.(interface{ SetCaptureDir(string) }); ok {
		c.SetCaptureDir(captureDir)
	}
	if err := output.SetDisplayConfig(DisplayConfig{
		Width:       width,
		Height:      height,
		Scale:       scale,
		RefreshRate: fps,
		VSync:       true,
		Fullscreen:  fullscreen,
	}); err != nil {
		fmt.Printf("Failed to configure video: %v\n", err)
		os.Exit(1)
	}

	source := NewTestPatternSource(ctx)
	if err := source.Start(); err != nil {
		fmt.Printf("Failed to start frame source: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Streaming %dx%d %s frames at %d FPS\n", width, height, format, fps)
	if err := output.Start(); err != nil {
		fmt.Printf("Failed to start video: %v\n", err)
		os.Exit(1)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case <-output.Done():
	case <-interrupt:
		fmt.Println("\nShutting down")
		_ = output.Stop()
	}

	source.Stop()
	_ = output.Close()

	stats := ctx.Stats()
	fmt.Printf("Frames: %d generated, %d dropped, %d presented, %d uploaded\n",
		stats.FramesGenerated, stats.FramesDropped, stats.FramesPresented, stats.Uploads)
}
