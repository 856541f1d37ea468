//go:build !headless

// video_backend_ebiten.go - Ebiten display backend

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// EbitenSurface is the GPU-resident texture surface. The backing image
// is created on first EnsureSize and replaced when dimensions change.
type EbitenSurface struct {
	image  *ebiten.Image
	id     int
	width  int
	height int
}

func NewEbitenSurface() *EbitenSurface {
	return &EbitenSurface{}
}

func (es *EbitenSurface) EnsureSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return &VideoError{
			Operation: "texture resize",
			Details:   fmt.Sprintf("invalid dimensions %dx%d", width, height),
		}
	}
	if es.image != nil && es.width == width && es.height == height {
		return nil
	}
	if es.image != nil {
		es.image.Dispose()
	}
	es.image = ebiten.NewImage(width, height)
	es.width = width
	es.height = height
	if es.id == 0 {
		es.id = int(nextSurfaceID.Add(1))
	}
	return nil
}

func (es *EbitenSurface) WritePixels(rgba []byte) error {
	if es.image == nil {
		return &VideoError{Operation: "texture write", Details: "no texture allocated"}
	}
	if len(rgba) != es.width*es.height*4 {
		return &VideoError{
			Operation: "texture write",
			Details:   fmt.Sprintf("pixel data size %d does not match %dx%d", len(rgba), es.width, es.height),
		}
	}
	es.image.WritePixels(rgba)
	return nil
}

func (es *EbitenSurface) HandleID() int {
	return es.id
}

func (es *EbitenSurface) Size() (width, height int) {
	return es.width, es.height
}

func (es *EbitenSurface) Dispose() {
	if es.image != nil {
		es.image.Dispose()
		es.image = nil
	}
	es.width = 0
	es.height = 0
}

// Image exposes the backing texture for draw calls.
func (es *EbitenSurface) Image() *ebiten.Image {
	return es.image
}

type EbitenOutput struct {
	ctx     *CameraContext
	surface *EbitenSurface

	running     atomic.Bool
	width       int
	height      int
	fullscreen  bool
	scale       int
	windowedW   int
	windowedH   int
	stateMutex  sync.RWMutex
	frameCount  uint64
	refreshRate int
	vsyncChan   chan struct{}
	done        chan struct{}

	showStatusBar bool
	captureDir    string
}

func NewEbitenOutput(ctx *CameraContext) (VideoOutput, error) {
	width, height := 640, 480
	surface := NewEbitenSurface()
	if ctx != nil {
		if cfg := ctx.Config(); cfg.Width > 0 && cfg.Height > 0 {
			width, height = cfg.Width, cfg.Height
		}
		// Draw the context's own surface; a second surface would never
		// see the uploads.
		if es, ok := ctx.Sink().Surface().(*EbitenSurface); ok {
			surface = es
		}
	}
	return &EbitenOutput{
		ctx:           ctx,
		surface:       surface,
		width:         width,
		height:        height,
		scale:         1,
		windowedW:     width,
		windowedH:     height,
		refreshRate:   60,
		vsyncChan:     make(chan struct{}, 1),
		done:          make(chan struct{}),
		showStatusBar: true,
		captureDir:    ".",
	}, nil
}

func (eo *EbitenOutput) Start() error {
	if eo.running.Load() {
		return nil
	}
	eo.stateMutex.Lock()
	eo.done = make(chan struct{})
	eo.stateMutex.Unlock()
	eo.running.Store(true)
	ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	ebiten.SetWindowTitle("Reliability Testing Camera (c) 2025 - 2026 W. Wagner")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}

	go func() {
		defer func() {
			eo.running.Store(false)
			eo.stateMutex.RLock()
			done := eo.done
			eo.stateMutex.RUnlock()
			select {
			case <-done:
			default:
				close(done)
			}
		}()
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Printf("Ebiten error: %v\n", err)
		}
	}()

	// Wait for first Draw call to ensure Ebiten is ready
	<-eo.vsyncChan
	return nil
}

// Stop flags the game loop to terminate on its next Update. The flag is
// atomic: Update reads it from the render goroutine while Stop and the
// RunGame cleanup write it from others.
func (eo *EbitenOutput) Stop() error {
	eo.running.Store(false)
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

func (eo *EbitenOutput) Done() <-chan struct{} {
	eo.stateMutex.RLock()
	done := eo.done
	eo.stateMutex.RUnlock()
	return done
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.stateMutex.Lock()
	defer eo.stateMutex.Unlock()

	width := config.Width
	height := config.Height
	if width <= 0 {
		width = eo.width
	}
	if height <= 0 {
		height = eo.height
	}
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	eo.width = width
	eo.height = height
	eo.scale = ClampScale(config.Scale)
	if config.RefreshRate > 0 {
		eo.refreshRate = config.RefreshRate
	}

	eo.windowedW = eo.width * eo.scale
	eo.windowedH = eo.height * eo.scale
	eo.fullscreen = config.Fullscreen
	ebiten.SetFullscreen(eo.fullscreen)
	if !eo.fullscreen {
		ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.stateMutex.RLock()
	defer eo.stateMutex.RUnlock()
	return DisplayConfig{
		Width:       eo.width,
		Height:      eo.height,
		Scale:       eo.scale,
		RefreshRate: eo.refreshRate,
		VSync:       true,
		Fullscreen:  eo.fullscreen,
	}
}

func (eo *EbitenOutput) Surface() TextureSurface {
	return eo.surface
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount
}

func (eo *EbitenOutput) GetRefreshRate() int {
	return eo.refreshRate
}

func (eo *EbitenOutput) SetCaptureDir(dir string) {
	eo.stateMutex.Lock()
	eo.captureDir = dir
	eo.stateMutex.Unlock()
}

func (eo *EbitenOutput) IsStarted() bool {
	return eo.running.Load()
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	if !eo.running.Load() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.stateMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
		}
		eo.stateMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.stateMutex.Lock()
		eo.showStatusBar = !eo.showStatusBar
		eo.stateMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		eo.captureFrame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		eo.copyFrame()
	}
	return nil
}

func (eo *EbitenOutput) captureFrame() {
	if eo.ctx == nil {
		return
	}
	eo.stateMutex.RLock()
	dir := eo.captureDir
	eo.stateMutex.RUnlock()

	path, err := SaveFrameWithMetadata(eo.ctx, dir)
	if err != nil {
		fmt.Printf("Frame capture failed: %v\n", err)
		return
	}
	fmt.Printf("Frame saved to %s\n", path)
}

func (eo *EbitenOutput) copyFrame() {
	if eo.ctx == nil {
		return
	}
	frame := eo.ctx.LastFrame()
	defer frame.Release()
	if frame.IsEmpty() {
		return
	}
	if err := CopyFrameToClipboard(frame); err != nil {
		fmt.Printf("Clipboard copy failed: %v\n", err)
		return
	}
	fmt.Printf("Frame copied to clipboard\n")
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.ctx != nil {
		eo.ctx.Present()
	}

	if img := eo.surface.Image(); img != nil {
		opts := &ebiten.DrawImageOptions{}
		sw, sh := eo.surface.Size()
		if sw > 0 && sh > 0 && (sw != eo.width || sh != eo.height) {
			opts.GeoM.Scale(float64(eo.width)/float64(sw), float64(eo.height)/float64(sh))
		}
		screen.DrawImage(img, opts)
	}

	eo.stateMutex.RLock()
	showStatusBar := eo.showStatusBar
	eo.stateMutex.RUnlock()
	if showStatusBar {
		eo.drawPipelineStatusBar(screen)
	}

	eo.frameCount++
	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.width, eo.height
}

type statusToken struct {
	name    string
	enabled bool
}

// drawStatusLine renders a labeled row of counters, dimming the ones
// that are zero and separating them with pipes.
func drawStatusLine(screen *ebiten.Image, x, baselineY int, label string, tokens []statusToken) {
	face := basicfont.Face7x13
	labelColor := color.RGBA{190, 190, 190, 255}
	offColor := color.RGBA{120, 120, 120, 255}
	onColor := color.RGBA{0, 220, 90, 255}

	text.Draw(screen, label, face, x, baselineY, labelColor)
	cursorX := x + text.BoundString(face, label).Dx() + 6

	for i, token := range tokens {
		if i > 0 {
			text.Draw(screen, "|", face, cursorX, baselineY, offColor)
			cursorX += text.BoundString(face, "|").Dx() + 8
		}
		c := offColor
		if token.enabled {
			c = onColor
		}
		text.Draw(screen, token.name, face, cursorX, baselineY, c)
		cursorX += text.BoundString(face, token.name).Dx() + 8
	}
}

func (eo *EbitenOutput) drawPipelineStatusBar(screen *ebiten.Image) {
	var stats PipelineStats
	if eo.ctx != nil {
		stats = eo.ctx.Stats()
	}

	barHeight := 44
	if barHeight >= eo.height {
		return
	}
	y := eo.height - barHeight
	ebitenutil.DrawRect(screen, 0, float64(y), float64(eo.width), float64(barHeight), color.RGBA{0, 0, 0, 180})

	drawStatusLine(screen, 6, y+13, "FRAME", []statusToken{
		{name: fmt.Sprintf("GEN %d", stats.FramesGenerated), enabled: stats.FramesGenerated > 0},
		{name: fmt.Sprintf("DROP %d", stats.FramesDropped), enabled: stats.FramesDropped > 0},
		{name: fmt.Sprintf("PRES %d", stats.FramesPresented), enabled: stats.FramesPresented > 0},
		{name: fmt.Sprintf("UP %d", stats.Uploads), enabled: stats.Uploads > 0},
	})
	drawStatusLine(screen, 6, y+26, "EVENT", []statusToken{
		{name: fmt.Sprintf("TOTAL %d", stats.TotalEvents), enabled: stats.TotalEvents > 0},
		{name: fmt.Sprintf("RATE %d/s", stats.EventsPerSecond), enabled: stats.EventsPerSecond > 0},
	})
	drawStatusLine(screen, 6, y+39, "TIME ", []statusToken{
		{name: fmt.Sprintf("LAT %.2fms", stats.PresentLatency.Seconds()*1000), enabled: stats.PresentLatency > 0},
		{name: fmt.Sprintf("FPS %.1f", ebiten.CurrentFPS()), enabled: true},
	})

	legendColor := color.RGBA{160, 160, 160, 255}
	legend := "S Save  C Copy  F11 Fullscreen  F12 Status Bar"
	legendW := text.BoundString(basicfont.Face7x13, legend).Dx()
	legendX := max(eo.width-legendW-6, 6)
	legendOpts := &ebiten.DrawImageOptions{}
	legendOpts.GeoM.Translate(float64(legendX), float64(y+39))
	legendOpts.ColorScale.ScaleWithColor(legendColor)
	text.DrawWithOptions(screen, legend, basicfont.Face7x13, legendOpts)
}

// newDisplaySurface returns the texture surface for the default backend.
func newDisplaySurface() TextureSurface {
	return NewEbitenSurface()
}
