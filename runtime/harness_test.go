/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Forwarded records one Harness.Forward call for later assertions.
type Forwarded struct {
	Key       interface{}
	Value     interface{}
	Timestamp int64
}

// Harness is a minimal in-memory ProcessorContext: it records every
// forwarded record and lets a test drive commit callbacks and wall-clock
// punctuations by hand instead of through a real host scheduler. It is
// local to this package's tests; the window aggregator's tests and the demo
// each carry their own fake of the same shape.
type Harness struct {
	Forwards []Forwarded

	commitCallbacks []func()
	wallClock       []func(timestamp int64)
}

// NewHarness builds an empty Harness.
func NewHarness() *Harness {
	return &Harness{}
}

// Forward implements ProcessorContext.
func (h *Harness) Forward(key interface{}, value interface{}, timestamp int64) {
	h.Forwards = append(h.Forwards, Forwarded{Key: key, Value: value, Timestamp: timestamp})
}

// SchedulePunctuation implements ProcessorContext. StreamTime callbacks are
// not invoked by the harness itself — the caller drives watermark advances
// directly through the watermark tracker; only WallClock callbacks are
// collected here so a test can fire them with FireWallClock.
func (h *Harness) SchedulePunctuation(interval int64, kind PunctuationType, callback func(timestamp int64)) (cancel func()) {
	if kind != WallClock {
		return func() {}
	}
	idx := len(h.wallClock)
	h.wallClock = append(h.wallClock, callback)
	return func() {
		h.wallClock[idx] = nil
	}
}

// OnCommit implements ProcessorContext.
func (h *Harness) OnCommit(callback func()) {
	h.commitCallbacks = append(h.commitCallbacks, callback)
}

// Commit invokes every registered commit callback in registration order,
// the way the host runtime invokes them immediately before a real commit.
func (h *Harness) Commit() {
	for _, cb := range h.commitCallbacks {
		cb()
	}
}

// FireWallClock invokes every registered WallClock punctuation with
// timestamp.
func (h *Harness) FireWallClock(timestamp int64) {
	for _, cb := range h.wallClock {
		if cb != nil {
			cb(timestamp)
		}
	}
}

// Reset clears recorded forwards without disturbing registered callbacks,
// useful between assertions within the same test.
func (h *Harness) Reset() {
	h.Forwards = nil
}

func TestHarnessRecordsForwardsInOrder(t *testing.T) {
	h := NewHarness()
	h.Forward("a", 1, 100)
	h.Forward("b", 2, 200)

	require.Len(t, h.Forwards, 2)
	assert.Equal(t, Forwarded{Key: "a", Value: 1, Timestamp: 100}, h.Forwards[0])
	assert.Equal(t, Forwarded{Key: "b", Value: 2, Timestamp: 200}, h.Forwards[1])
}

func TestHarnessCommitInvokesCallbacksInRegistrationOrder(t *testing.T) {
	h := NewHarness()
	var order []int
	h.OnCommit(func() { order = append(order, 1) })
	h.OnCommit(func() { order = append(order, 2) })

	h.Commit()
	assert.Equal(t, []int{1, 2}, order)
}

func TestHarnessWallClockPunctuationFiresRegisteredCallbacks(t *testing.T) {
	h := NewHarness()
	var seen []int64
	cancel := h.SchedulePunctuation(1000, WallClock, func(ts int64) {
		seen = append(seen, ts)
	})

	h.FireWallClock(5000)
	assert.Equal(t, []int64{5000}, seen)

	cancel()
	h.FireWallClock(6000)
	assert.Equal(t, []int64{5000}, seen, "cancelled punctuation must not fire again")
}

func TestHarnessStreamTimePunctuationIsNotCollected(t *testing.T) {
	h := NewHarness()
	called := false
	h.SchedulePunctuation(1000, StreamTime, func(int64) { called = true })

	h.FireWallClock(5000)
	assert.False(t, called, "StreamTime punctuations are driven by the watermark tracker, not the harness")
}

func TestHarnessResetClearsForwardsOnly(t *testing.T) {
	h := NewHarness()
	h.Forward("a", 1, 100)
	h.OnCommit(func() {})

	h.Reset()
	assert.Empty(t, h.Forwards)
	assert.Len(t, h.commitCallbacks, 1, "Reset must not disturb registered callbacks")
}
