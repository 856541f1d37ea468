// frame_triple_buffer.go - Three-slot rotating presentation buffer

/*
(c) 2025 - 2026 W. Wagner
https://github.com/wwagner/ReliabilityTestingCamera
License: GPLv3 or later
*/

package main

import (
	"sync/atomic"
	"time"
)

const NUM_PRESENT_SLOTS = 3

// The three role indices, the ready flag and a submission sequence are
// packed into one word so a rotation is a single compare-and-swap: no
// thread can ever observe the roles as anything but a permutation of
// {0,1,2}. The sequence bumps on every publish, so a withdraw followed
// by a republish can never recreate a word the consumer loaded earlier
// and a stale rotation CAS always fails instead of clearing the ready
// bit of a submission it never saw.
//
//	bits 0-1  write slot index
//	bits 2-3  transfer slot index
//	bits 4-5  display slot index
//	bit  6    write slot holds an unconsumed submission
//	bits 7+   submission sequence, wraps freely
const (
	stateReadyBit     = 1 << 6
	stateSeqIncrement = 1 << 7
	stateRolesMask    = stateSeqIncrement - 1
)

func packRoles(write, transfer, display int, ready bool) uint32 {
	s := uint32(write) | uint32(transfer)<<2 | uint32(display)<<4
	if ready {
		s |= stateReadyBit
	}
	return s
}

func writeIndex(s uint32) int    { return int(s & 3) }
func transferIndex(s uint32) int { return int(s >> 2 & 3) }
func displayIndex(s uint32) int  { return int(s >> 4 & 3) }

type presentSlot struct {
	frame       FrameRef
	submittedAt atomic.Int64 // unix nanoseconds, stamped by Submit
}

// TripleBuffer decouples frame production from texture upload and from
// what is currently on screen. The producer writes into the slot holding
// the write role; once per presentation cycle the consumer transfers the
// slot holding the transfer role to the display surface and rotates the
// roles write→transfer→display→write. Producer and consumer never touch
// the same slot: the producer only writes the write slot, the consumer
// only reads the transfer and display slots, and the packed-state CAS is
// the only point where a slot changes hands.
//
// Submit never blocks. A second Submit before the next Advance replaces
// the pending frame (freshest wins). A single slot mailbox would force
// the consumer to finish the upload synchronously with consumption;
// three slots let "new frame assembled", "frame mid-upload" and "frame
// on screen" overlap at the cost of up to two frames of latency.
//
// Single producer, single consumer. Reset only after both have stopped.
type TripleBuffer struct {
	slots        [NUM_PRESENT_SLOTS]presentSlot
	state        atomic.Uint32
	transferring atomic.Bool
	presented    atomic.Int64
	lastLatency  atomic.Int64 // nanoseconds submit-to-display
}

func NewTripleBuffer() *TripleBuffer {
	tb := &TripleBuffer{}
	tb.state.Store(packRoles(0, 1, 2, false))
	return tb
}

// Submit places frame in the write slot and marks it ready, taking
// ownership of the handle. Empty frames are ignored. Never blocks.
func (tb *TripleBuffer) Submit(frame FrameRef) {
	if frame.IsEmpty() {
		return
	}

	for {
		s := tb.state.Load()
		if s&stateReadyBit != 0 {
			// Withdraw the pending submission first so Advance cannot
			// rotate the slot away mid-overwrite.
			if !tb.state.CompareAndSwap(s, s&^stateReadyBit) {
				continue // Advance rotated; reload the new roles
			}
			s &^= stateReadyBit
		}

		slot := &tb.slots[writeIndex(s)]
		slot.frame.Release()
		slot.frame = frame
		slot.submittedAt.Store(time.Now().UnixNano())

		// Bumping the sequence makes the published word distinct from
		// every state the consumer may have loaded before the withdraw,
		// so a rotation already in flight cannot land on it and clear
		// this submission's ready bit unseen.
		if tb.state.CompareAndSwap(s, (s|stateReadyBit)+stateSeqIncrement) {
			return
		}
	}
}

// Advance runs one presentation cycle on the consumer thread. If a
// submission is pending it transfers the transfer slot's contents to the
// surface, rotates the roles with a single CAS and reports true. When
// the transfer fails the roles stay put, so the display slot keeps the
// last successfully transferred frame and the next cycle retries.
func (tb *TripleBuffer) Advance(transfer func(frame FrameRef) error) bool {
	s := tb.state.Load()
	if s&stateReadyBit == 0 {
		return false
	}

	ti := transferIndex(s)
	slot := &tb.slots[ti]
	if !slot.frame.IsEmpty() && transfer != nil {
		tb.transferring.Store(true)
		err := transfer(slot.frame)
		tb.transferring.Store(false)
		if err != nil {
			return false
		}
	}

	rotated := packRoles(displayIndex(s), writeIndex(s), ti, false) | s&^uint32(stateRolesMask)
	if !tb.state.CompareAndSwap(s, rotated) {
		// The producer published during the transfer; the sequence tag
		// guarantees the word moved on even if the roles read the same.
		// The roles stay put, the fresh submission keeps its ready bit
		// and the next cycle picks it up.
		return false
	}

	tb.presented.Add(1)
	if at := slot.submittedAt.Load(); at != 0 {
		tb.lastLatency.Store(time.Now().UnixNano() - at)
	}
	return true
}

// DisplaySlot returns the index of the slot currently in the display
// role. Valid before any Submit: the slots are pre-initialized empty.
func (tb *TripleBuffer) DisplaySlot() int {
	return displayIndex(tb.state.Load())
}

// Dimensions of the most recently presented slot. Consumer thread only.
func (tb *TripleBuffer) Dimensions() (width, height int) {
	return tb.slots[tb.DisplaySlot()].frame.Dimensions()
}

// HasPending reports whether a submission awaits the next Advance.
func (tb *TripleBuffer) HasPending() bool {
	return tb.state.Load()&stateReadyBit != 0
}

// FramesPresented counts successful rotations.
func (tb *TripleBuffer) FramesPresented() int64 {
	return tb.presented.Load()
}

// LastPresentLatency is the submit-to-display delay of the most recently
// presented frame.
func (tb *TripleBuffer) LastPresentLatency() time.Duration {
	return time.Duration(tb.lastLatency.Load())
}

// Reset releases all slots and restores the initial role assignment.
// Idempotent. Only safe once producer and consumer have stopped.
func (tb *TripleBuffer) Reset() {
	for i := range tb.slots {
		tb.slots[i].frame.Release()
		tb.slots[i].submittedAt.Store(0)
	}
	tb.state.Store(packRoles(0, 1, 2, false))
	tb.transferring.Store(false)
	tb.presented.Store(0)
	tb.lastLatency.Store(0)
}

// roles unpacks the current state for invariant checks.
func (tb *TripleBuffer) roles() (write, transfer, display int, ready bool) {
	s := tb.state.Load()
	return writeIndex(s), transferIndex(s), displayIndex(s), s&stateReadyBit != 0
}
