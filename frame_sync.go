// frame_sync.go - Frame timing and display rate gating

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import "sync/atomic"

// FrameSync tracks when frames were generated and displayed. The camera
// timestamp is in microseconds since camera start, system timestamps in
// microseconds since the Unix epoch. All fields are word-sized atomics
// so producer and consumer update them without locking.
type FrameSync struct {
	lastFrameCameraTS atomic.Int64
	lastFrameSystemTS atomic.Int64
	lastDisplayTimeUS atomic.Int64
}

func NewFrameSync() *FrameSync {
	return &FrameSync{}
}

func (fs *FrameSync) OnFrameGenerated(cameraTS, systemTS int64) {
	fs.lastFrameCameraTS.Store(cameraTS)
	fs.lastFrameSystemTS.Store(systemTS)
}

func (fs *FrameSync) OnFrameDisplayed(systemTS int64) {
	fs.lastDisplayTimeUS.Store(systemTS)
}

func (fs *FrameSync) LastFrameCameraTS() int64 {
	return fs.lastFrameCameraTS.Load()
}

func (fs *FrameSync) LastFrameSystemTS() int64 {
	return fs.lastFrameSystemTS.Load()
}

func (fs *FrameSync) LastDisplayTimeUS() int64 {
	return fs.lastDisplayTimeUS.Load()
}

// ShouldDisplay reports whether enough time has passed since the last
// displayed frame to present another at the target rate.
func (fs *FrameSync) ShouldDisplay(currentTimeUS int64, targetFPS int) bool {
	if targetFPS <= 0 {
		return true
	}
	frameIntervalUS := int64(1000000 / targetFPS)
	return currentTimeUS-fs.lastDisplayTimeUS.Load() >= frameIntervalUS
}

func (fs *FrameSync) Reset() {
	fs.lastFrameCameraTS.Store(0)
	fs.lastFrameSystemTS.Store(0)
	fs.lastDisplayTimeUS.Store(0)
}
