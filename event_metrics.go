// event_metrics.go - Event rate accounting for the sensor feed

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

// Event batches older than this are considered stale and skipped.
const MAX_EVENT_AGE_US = 5000000

// EventMetrics accumulates event counts from the camera callback and
// derives a once-per-second rate. Counters are atomics so the producer
// thread records without locking; the rate rollover is double-checked
// under a mutex because two fields change together.
type EventMetrics struct {
	totalEvents           atomic.Int64
	eventsSinceLastUpdate atomic.Int64
	eventsLastSecond      atomic.Int64
	lastRateUpdateUS      atomic.Int64
	lastEventCameraTS     atomic.Int64
	mu                    sync.Mutex
}

func NewEventMetrics() *EventMetrics {
	return &EventMetrics{}
}

// RecordEvents adds a batch of count events whose newest camera
// timestamp is timestampUS (microseconds since camera start).
func (m *EventMetrics) RecordEvents(count, timestampUS int64) {
	if count <= 0 {
		return
	}
	m.totalEvents.Add(count)
	m.eventsSinceLastUpdate.Add(count)
	m.lastEventCameraTS.Store(timestampUS)
	m.updateRate(timestampUS)
}

func (m *EventMetrics) updateRate(timestampUS int64) {
	if timestampUS-m.lastRateUpdateUS.Load() < 1000000 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if timestampUS-m.lastRateUpdateUS.Load() >= 1000000 {
		m.eventsLastSecond.Store(m.eventsSinceLastUpdate.Swap(0))
		m.lastRateUpdateUS.Store(timestampUS)
	}
}

func (m *EventMetrics) TotalEvents() int64 {
	return m.totalEvents.Load()
}

func (m *EventMetrics) EventsPerSecond() int64 {
	return m.eventsLastSecond.Load()
}

func (m *EventMetrics) LastEventTimestamp() int64 {
	return m.lastEventCameraTS.Load()
}

func (m *EventMetrics) Reset() {
	m.totalEvents.Store(0)
	m.eventsSinceLastUpdate.Store(0)
	m.eventsLastSecond.Store(0)
	m.lastRateUpdateUS.Store(0)
	m.lastEventCameraTS.Store(0)
}

// batchTooOld reports whether an event batch ending at eventTS (camera
// time) is older than MAX_EVENT_AGE_US relative to nowUS. With an
// unknown camera start time the age cannot be determined and the batch
// is accepted.
func batchTooOld(eventTS, cameraStartUS, nowUS int64) bool {
	if cameraStartUS == 0 {
		return false
	}
	return nowUS-(cameraStartUS+eventTS) > MAX_EVENT_AGE_US
}
