// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// transition is one reportable busy edge. An idle edge carries the
// continuations it releases.
type transition struct {
	busy  bool
	after []func()
}

// busyTracker counts in-flight background population tasks. The 0→1 and
// 1→0 transitions are the only ones reported. They are recorded in
// decision order under the tracker's lock and drained FIFO by the
// notification dispatcher; racing posters therefore cannot reorder the
// edges observers see. Continuations registered while busy attach to the
// idle transition that releases them.
type busyTracker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	level   int
	after   []func()
	pending []transition
}

func newBusyTracker() *busyTracker {
	b := &busyTracker{}
	b.cond = sync.NewCond(&b.mu)

	return b
}

// begin increments the busy level. It records a became-busy transition and
// reports true if the tracker just became busy.
func (b *busyTracker) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.level++
	if b.level != 1 {
		return false
	}

	b.pending = append(b.pending, transition{busy: true})

	return true
}

// end decrements the busy level. If the tracker became idle it records a
// became-idle transition carrying the queued continuations and reports
// true.
func (b *busyTracker) end() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.level--
	if b.level > 0 {
		return false
	}

	b.cond.Broadcast()

	b.pending = append(b.pending, transition{busy: false, after: b.after})
	b.after = nil

	return true
}

// take returns the recorded transitions in order and clears the queue.
func (b *busyTracker) take() []transition {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := b.pending
	b.pending = nil

	return pending
}

// deferWhileBusy queues a continuation for the next idle transition.
// It reports false if the tracker is idle and the continuation should run
// immediately instead.
func (b *busyTracker) deferWhileBusy(fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.level == 0 {
		return false
	}

	b.after = append(b.after, fn)

	return true
}

// wait blocks until the busy level reaches zero.
func (b *busyTracker) wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.level > 0 {
		b.cond.Wait()
	}
}

// goroutineID returns the numeric id of the calling goroutine. It is used
// only to detect the fatal usage error of blocking the notification
// dispatcher on itself.
func goroutineID() uint64 {
	var buf [64]byte

	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])

	// Header format: "goroutine 123 [running]:".
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}

	return id
}
